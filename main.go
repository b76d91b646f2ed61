package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/adityasinghcodes/superwhisper-linux/config"
	"github.com/adityasinghcodes/superwhisper-linux/history"
	"github.com/adityasinghcodes/superwhisper-linux/internal/app"
	"github.com/adityasinghcodes/superwhisper-linux/singleton"
	"github.com/adityasinghcodes/superwhisper-linux/toggle"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `superwhisper - hold-nothing dictation for Linux

Usage:
  superwhisper            run the daemon
  superwhisper toggle     start or stop recording in the running daemon
  superwhisper status     report whether a daemon is running
  superwhisper keybind    print a Hyprland bind line for the configured hotkey
  superwhisper history    print recent transcriptions
  superwhisper version    print version information
`

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "":
		os.Exit(runDaemon())
	case "toggle":
		os.Exit(runToggle())
	case "status":
		os.Exit(runStatus())
	case "keybind":
		os.Exit(runKeybind())
	case "history":
		os.Exit(runHistory())
	case "version":
		fmt.Printf("superwhisper %s (commit %s, built %s)\n", version, commit, date)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

func runDaemon() int {
	setupLogging()
	slog.Info("starting", "version", version, "commit", commit, "date", date)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = config.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon := app.NewDaemon(cfg, version)
	if err := daemon.Run(ctx); err != nil {
		if errors.Is(err, singleton.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "superwhisper is already running; use 'superwhisper toggle'")
			return 1
		}
		slog.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

func runToggle() int {
	if err := toggle.Send(singleton.LockPath()); err != nil {
		if errors.Is(err, toggle.ErrNoInstance) {
			fmt.Fprintln(os.Stderr, "no superwhisper daemon is running")
		} else {
			fmt.Fprintln(os.Stderr, "toggle failed:", err)
		}
		return 1
	}
	return 0
}

func runStatus() int {
	pid, ok := singleton.Running(singleton.LockPath())
	if !ok {
		fmt.Println("not running")
		return 1
	}
	fmt.Printf("running (pid %d)\n", pid)
	return 0
}

func runKeybind() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 1
	}
	parts := strings.Split(cfg.Hotkey, "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	mods := make([]string, 0, len(parts)-1)
	for _, m := range parts[:len(parts)-1] {
		mods = append(mods, strings.ToUpper(strings.TrimSpace(m)))
	}
	fmt.Printf("bind = %s, %s, exec, superwhisper toggle\n", strings.Join(mods, " "), key)
	return 0
}

func runHistory() int {
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open history:", err)
		return 1
	}
	defer store.Close()

	entries, err := store.Recent(20)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read history:", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Println("no transcriptions yet")
		return 0
	}
	for _, tr := range entries {
		fmt.Printf("%s  [%s, %.1fs]  %s\n",
			tr.CreatedAt.Format("2006-01-02 15:04:05"), tr.Language, tr.AudioSeconds, tr.Text)
	}
	return 0
}

// setupLogging sends logs to stderr and, best effort, to a file under
// the user cache dir so detached daemon runs stay inspectable.
func setupLogging() {
	out := io.Writer(os.Stderr)
	if dir, err := os.UserCacheDir(); err == nil {
		logDir := filepath.Join(dir, "superwhisper")
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			f, err := os.OpenFile(filepath.Join(logDir, "superwhisper.log"),
				os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				out = io.MultiWriter(os.Stderr, f)
			}
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, nil)))
}
