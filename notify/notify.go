// Package notify turns status events into desktop notifications and
// feedback sounds. It is a passive observer: it consumes the broadcast
// and never feeds anything back into the session.
package notify

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/gen2brain/beeep"

	"github.com/adityasinghcodes/superwhisper-linux/status"
)

const appName = "SuperWhisper"

// Freedesktop sound theme names for feedback sounds.
var soundFiles = map[string]string{
	"start":    "message-new-instant",
	"stop":     "message-sent-instant",
	"complete": "complete",
	"error":    "dialog-error",
}

// Notifier shows desktop notifications for session transitions.
type Notifier struct {
	notifications bool
	sounds        bool
	paplay        string // path to paplay, empty if unavailable

	// Seams for tests.
	show func(title, body, icon string) error
	play func(sound string)
}

// New creates a notifier. Both notifications and sounds can be disabled
// independently from config.
func New(notifications, sounds bool) *Notifier {
	n := &Notifier{
		notifications: notifications,
		sounds:        sounds,
		show:          beeep.Notify,
	}
	if path, err := exec.LookPath("paplay"); err == nil {
		n.paplay = path
	}
	n.play = n.playSound
	return n
}

// Run consumes events until the channel closes. Call it on its own
// goroutine; it must never block the publisher (the channel is buffered
// and drops on overflow upstream).
func (n *Notifier) Run(events <-chan status.Event) {
	for ev := range events {
		n.handle(ev)
	}
}

func (n *Notifier) handle(ev status.Event) {
	switch ev.Kind {
	case status.RecordingStarted:
		n.notify("Recording", "Speak now...", "audio-input-microphone")
		n.sound("start")
	case status.RecordingStopped:
		n.notify("Processing", "Transcribing audio...", "audio-x-generic")
		n.sound("stop")
	case status.Transcribing:
		// Covered by the recording-stopped notice.
	case status.Result:
		body := fmt.Sprintf("Copied (%.1fs)\n%s", ev.Duration.Seconds(), ev.Preview)
		n.notify("Done", body, "dialog-information")
		n.sound("complete")
	case status.NoSpeech:
		n.notify("No Speech", "No speech detected in recording", "dialog-warning")
	case status.Error:
		n.notify("Error", ev.Message, "dialog-error")
		n.sound("error")
	}
}

func (n *Notifier) notify(title, body, icon string) {
	if !n.notifications {
		return
	}
	if err := n.show(appName+": "+title, body, icon); err != nil {
		slog.Warn("show notification", "error", err)
	}
}

func (n *Notifier) sound(name string) {
	if !n.sounds {
		return
	}
	n.play(name)
}

func (n *Notifier) playSound(name string) {
	if n.paplay == "" {
		return
	}
	id, ok := soundFiles[name]
	if !ok {
		return
	}
	path := fmt.Sprintf("/usr/share/sounds/freedesktop/stereo/%s.oga", id)
	// Fire and forget; feedback sounds must never stall an observer.
	if err := exec.Command(n.paplay, path).Start(); err != nil {
		slog.Debug("paplay", "error", err)
	}
}
