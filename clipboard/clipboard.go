// Package clipboard places transcribed text on the system clipboard and
// simulates the paste keystroke appropriate for the focused application.
package clipboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// ErrDegraded means the clipboard write succeeded but the paste keystroke
// could not be targeted; the user can still paste manually.
var ErrDegraded = errors.New("paste injection degraded, text left on clipboard")

// DefaultTerminalClasses are window class names of terminal emulators,
// which take Ctrl+Shift+V instead of Ctrl+V. Matching is by substring so
// reverse-domain identifiers like "com.mitchellh.ghostty" still hit.
var DefaultTerminalClasses = []string{
	"kitty", "alacritty", "foot", "wezterm", "ghostty", "konsole",
	"gnome-terminal", "xfce4-terminal", "terminator", "tilix",
	"st-256color", "urxvt", "xterm", "contour", "warp", "rio",
	"blackbox", "ptyxis",
}

// IsTerminal reports whether a focused-window class identifies a terminal
// emulator. Substring containment, case-insensitive.
func IsTerminal(windowClass string, terminals []string) bool {
	if windowClass == "" {
		return false
	}
	wc := strings.ToLower(windowClass)
	if terminals == nil {
		terminals = DefaultTerminalClasses
	}
	for _, term := range terminals {
		if strings.Contains(wc, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// Injector implements text injection: clipboard write followed by a
// paste keystroke chosen per the focused window's class.
type Injector struct {
	terminals []string

	// Seams for tests.
	writeClipboard func(text string) error
	activeWindow   func(ctx context.Context) (string, error)
	sendPaste      func(ctx context.Context, terminal bool) error
	settle         time.Duration
}

// NewInjector creates an injector. A nil terminal list uses the defaults.
func NewInjector(terminals []string) *Injector {
	if len(terminals) == 0 {
		terminals = DefaultTerminalClasses
	}
	return &Injector{
		terminals:      terminals,
		writeClipboard: clipboard.WriteAll,
		activeWindow:   activeWindowClass,
		sendPaste:      sendPasteShortcut,
		settle:         50 * time.Millisecond,
	}
}

// Inject places text on the clipboard and pastes it into the focused
// window. A failure to detect or target the window is not fatal: the text
// stays on the clipboard and ErrDegraded is returned.
func (i *Injector) Inject(ctx context.Context, text string) error {
	if err := i.writeClipboard(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	slog.Debug("copied to clipboard", "chars", len(text))

	// Let the clipboard manager pick the selection up first.
	select {
	case <-time.After(i.settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	class, err := i.activeWindow(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDegraded, err)
	}

	terminal := IsTerminal(class, i.terminals)
	if terminal {
		slog.Info("terminal detected, using Ctrl+Shift+V", "class", class)
	} else {
		slog.Info("using Ctrl+V", "class", class)
	}

	if err := i.sendPaste(ctx, terminal); err != nil {
		return fmt.Errorf("%w: %v", ErrDegraded, err)
	}
	return nil
}

// activeWindowClass asks the Hyprland compositor for the focused window
// class.
func activeWindowClass(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return "", fmt.Errorf("hyprctl: %w", err)
	}

	var win struct {
		Class string `json:"class"`
	}
	if err := json.Unmarshal(out, &win); err != nil {
		return "", fmt.Errorf("parse hyprctl output: %w", err)
	}
	if win.Class == "" {
		return "", errors.New("no focused window")
	}
	return strings.ToLower(win.Class), nil
}

// sendPasteShortcut sends the paste key combination with wtype, falling
// back to uinput synthesis when wtype is absent.
func sendPasteShortcut(ctx context.Context, terminal bool) error {
	if _, err := exec.LookPath("wtype"); err == nil {
		return wtypePaste(ctx, terminal)
	}
	return keybdPaste(terminal)
}

func wtypePaste(ctx context.Context, terminal bool) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var args []string
	if terminal {
		args = []string{"-M", "ctrl", "-M", "shift", "v", "-m", "shift", "-m", "ctrl"}
	} else {
		args = []string{"-M", "ctrl", "v", "-m", "ctrl"}
	}
	if out, err := exec.CommandContext(ctx, "wtype", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("wtype: %v: %s", err, out)
	}
	return nil
}

func keybdPaste(terminal bool) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard binding: %w", err)
	}
	kb.HasCTRL(true)
	if terminal {
		kb.HasSHIFT(true)
	}
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("send paste keystroke: %w", err)
	}
	return nil
}
