package notify

import (
	"testing"
	"time"

	"github.com/adityasinghcodes/superwhisper-linux/status"
)

type shown struct {
	title, body string
}

func testNotifier(notifications, sounds bool) (*Notifier, *[]shown, *[]string) {
	var notices []shown
	var played []string
	n := New(notifications, sounds)
	n.show = func(title, body, icon string) error {
		notices = append(notices, shown{title, body})
		return nil
	}
	n.play = func(sound string) {
		played = append(played, sound)
	}
	return n, &notices, &played
}

func TestHandleEvents(t *testing.T) {
	tests := []struct {
		name      string
		ev        status.Event
		wantTitle string
		wantSound string
	}{
		{"recording started", status.Event{Kind: status.RecordingStarted}, "SuperWhisper: Recording", "start"},
		{"recording stopped", status.Event{Kind: status.RecordingStopped}, "SuperWhisper: Processing", "stop"},
		{"result", status.Event{Kind: status.Result, Preview: "hello", Duration: 2 * time.Second}, "SuperWhisper: Done", "complete"},
		{"no speech", status.Event{Kind: status.NoSpeech}, "SuperWhisper: No Speech", ""},
		{"error", status.Event{Kind: status.Error, Message: "boom"}, "SuperWhisper: Error", "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, notices, played := testNotifier(true, true)
			n.handle(tt.ev)
			if len(*notices) != 1 {
				t.Fatalf("got %d notifications, want 1", len(*notices))
			}
			if got := (*notices)[0].title; got != tt.wantTitle {
				t.Errorf("title = %q, want %q", got, tt.wantTitle)
			}
			if tt.wantSound == "" {
				if len(*played) != 0 {
					t.Errorf("played %v, want none", *played)
				}
			} else if len(*played) != 1 || (*played)[0] != tt.wantSound {
				t.Errorf("played %v, want [%s]", *played, tt.wantSound)
			}
		})
	}
}

func TestTranscribingIsSilent(t *testing.T) {
	n, notices, played := testNotifier(true, true)
	n.handle(status.Event{Kind: status.Transcribing})
	if len(*notices) != 0 || len(*played) != 0 {
		t.Errorf("transcribing produced output: %v %v", *notices, *played)
	}
}

func TestDisabled(t *testing.T) {
	n, notices, played := testNotifier(false, false)
	n.handle(status.Event{Kind: status.RecordingStarted})
	n.handle(status.Event{Kind: status.Error, Message: "x"})
	if len(*notices) != 0 {
		t.Errorf("notifications shown while disabled: %v", *notices)
	}
	if len(*played) != 0 {
		t.Errorf("sounds played while disabled: %v", *played)
	}
}

func TestRunDrainsChannel(t *testing.T) {
	n, notices, _ := testNotifier(true, false)
	ch := make(chan status.Event, 3)
	ch <- status.Event{Kind: status.RecordingStarted}
	ch <- status.Event{Kind: status.RecordingStopped}
	ch <- status.Event{Kind: status.NoSpeech}
	close(ch)
	done := make(chan struct{})
	go func() {
		n.Run(ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	if len(*notices) != 3 {
		t.Errorf("got %d notifications, want 3", len(*notices))
	}
}
