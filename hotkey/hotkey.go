// Package hotkey provides an optional in-process global hotkey that
// fires the same toggle as the SIGUSR1 channel. Compositor-level
// keybinds (sending the toggle subcommand) remain the primary path;
// this hook covers environments without one.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"

	hook "github.com/robotn/gohook"
)

// Manager owns the global keyboard hook.
type Manager struct {
	keys    []string
	trigger func()
	done    chan struct{}
}

// Parse splits a binding like "CTRL+ALT+R" into the lowercase key names
// the hook library expects, modifiers first.
func Parse(binding string) ([]string, error) {
	parts := strings.Split(binding, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("empty key in binding %q", binding)
		}
		keys = append(keys, p)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty binding")
	}
	return keys, nil
}

// New creates a manager for binding that calls trigger on each press.
func New(binding string, trigger func()) (*Manager, error) {
	keys, err := Parse(binding)
	if err != nil {
		return nil, err
	}
	return &Manager{keys: keys, trigger: trigger}, nil
}

// Start installs the hook and runs its event loop on a background
// goroutine until Stop is called.
func (m *Manager) Start() {
	hook.Register(hook.KeyDown, m.keys, func(e hook.Event) {
		m.trigger()
	})
	events := hook.Start()
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		<-hook.Process(events)
	}()
	slog.Info("hotkey registered", "keys", strings.Join(m.keys, "+"))
}

// Stop tears the hook down and waits for the event loop to exit.
func (m *Manager) Stop() {
	if m.done == nil {
		return
	}
	hook.End()
	<-m.done
	m.done = nil
}
