// Package app wires the dictation daemon together: single-instance
// guard, toggle listener, capture, transcription, and text delivery.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/adityasinghcodes/superwhisper-linux/audiocapture"
	"github.com/adityasinghcodes/superwhisper-linux/clipboard"
	"github.com/adityasinghcodes/superwhisper-linux/config"
	"github.com/adityasinghcodes/superwhisper-linux/history"
	"github.com/adityasinghcodes/superwhisper-linux/hotkey"
	"github.com/adityasinghcodes/superwhisper-linux/notify"
	"github.com/adityasinghcodes/superwhisper-linux/singleton"
	"github.com/adityasinghcodes/superwhisper-linux/status"
	"github.com/adityasinghcodes/superwhisper-linux/stt"
	"github.com/adityasinghcodes/superwhisper-linux/toggle"
)

// Daemon is the long-running dictation service.
type Daemon struct {
	cfg     *config.Config
	version string

	lock     *singleton.Lock
	store    *history.Store
	registry *stt.Registry
	bus      *status.Broadcaster
	listener *toggle.Listener
	hotkeys  *hotkey.Manager
}

// NewDaemon creates a daemon for the given configuration.
func NewDaemon(cfg *config.Config, version string) *Daemon {
	return &Daemon{cfg: cfg, version: version}
}

// Run starts the daemon and blocks until ctx is cancelled. It returns
// singleton.ErrAlreadyRunning when another instance holds the lock.
func (d *Daemon) Run(ctx context.Context) error {
	lock, err := singleton.Acquire(singleton.LockPath())
	if err != nil {
		return err
	}
	d.lock = lock
	defer d.shutdown()

	slog.Info("daemon starting", "version", d.version, "pid_file", lock.Path())

	// The pid file is visible now, so toggles can arrive before setup
	// finishes. The listener installs its signal handler immediately and
	// buffers presses until Start.
	d.listener = toggle.NewListener()

	engine, err := d.setupEngines()
	if err != nil {
		return err
	}
	d.setupHistory()

	capture := audiocapture.NewManager()
	d.logMicrophone(ctx, capture)

	d.bus = status.NewBroadcaster()
	notifier := notify.New(d.cfg.Notifications, d.cfg.AudioFeedback)
	go notifier.Run(d.bus.Subscribe(16))

	var recorder Recorder
	if d.store != nil {
		recorder = d.store
	}
	session := NewSession(SessionOptions{
		Capturer: capture,
		Engine:   engine,
		Injector: clipboard.NewInjector(d.cfg.TerminalClasses),
		Bus:      d.bus,
		Recorder: recorder,
		Device:   d.microphone,
		Language: d.cfg.Language,
	})

	if err := d.listener.Start(session.Toggle); err != nil {
		return fmt.Errorf("start toggle listener: %w", err)
	}
	d.setupHotkey(session)

	slog.Info("daemon ready", "engine", engine.Name(), "hotkey", d.cfg.Hotkey)
	session.Run(ctx)
	return nil
}

func (d *Daemon) setupEngines() (stt.Provider, error) {
	d.registry = stt.NewRegistry()

	local, err := stt.NewWhisperLocal(stt.WhisperLocalConfig{
		ModelSize: d.cfg.Model,
		Device:    d.cfg.Device,
	})
	if err != nil {
		slog.Warn("local whisper unavailable", "error", err)
	} else {
		d.registry.Register(local)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		d.registry.Register(stt.NewWhisperAPI(stt.WhisperAPIConfig{
			APIKey:  key,
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		}))
	}

	engine := d.registry.Pick(d.cfg.STTProvider)
	if engine == nil {
		return nil, fmt.Errorf("no transcription engine is ready: %w", stt.ErrUnavailable)
	}
	return engine, nil
}

// microphone re-reads the config file so a changed device selection
// takes effect on the next recording, without a daemon restart.
func (d *Daemon) microphone() string {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("reload config", "error", err)
		return d.cfg.Microphone
	}
	return cfg.Microphone
}

func (d *Daemon) setupHistory() {
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		// History is a convenience; dictation still works without it.
		slog.Warn("open history store", "error", err)
		return
	}
	d.store = store
}

// logMicrophone resolves the configured microphone at startup so a
// missing device shows up in the log before the first hotkey press.
func (d *Daemon) logMicrophone(ctx context.Context, capture *audiocapture.Manager) {
	devices, err := capture.DevicesWithRetry(ctx)
	if err != nil {
		slog.Warn("list audio devices", "error", err)
		return
	}
	if d.cfg.Microphone == "" || d.cfg.Microphone == "auto" {
		if len(devices) > 0 {
			slog.Info("microphone auto-select", "default", devices[0].Name)
		}
		return
	}
	for _, dev := range devices {
		if dev.Name == d.cfg.Microphone {
			slog.Info("microphone configured", "name", dev.Name)
			return
		}
	}
	slog.Warn("configured microphone not present, will retry on capture", "name", d.cfg.Microphone)
}

func (d *Daemon) setupHotkey(session *Session) {
	if d.cfg.Hotkey == "" {
		return
	}
	mgr, err := hotkey.New(d.cfg.Hotkey, session.Toggle)
	if err != nil {
		slog.Warn("invalid hotkey binding", "binding", d.cfg.Hotkey, "error", err)
		return
	}
	d.hotkeys = mgr
	mgr.Start()
}

func (d *Daemon) shutdown() {
	if d.hotkeys != nil {
		d.hotkeys.Stop()
	}
	if d.listener != nil {
		d.listener.Stop()
	}
	if d.bus != nil {
		d.bus.Close()
	}
	if d.registry != nil {
		if err := d.registry.Close(); err != nil {
			slog.Error("close transcription engines", "error", err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Error("close history store", "error", err)
		}
	}
	if d.lock != nil {
		if err := d.lock.Release(); err != nil {
			slog.Error("release instance lock", "error", err)
		}
	}
	slog.Info("daemon stopped")
}
