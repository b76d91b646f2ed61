// Package status is a one-way sink for session transitions. Observers
// (notifications, a recording timer, logs) subscribe independently;
// nothing here ever feeds back into the state machine.
package status

import (
	"log/slog"
	"sync"
	"time"
)

// Kind identifies a status event.
type Kind int

const (
	RecordingStarted Kind = iota
	RecordingStopped
	Transcribing
	Result
	NoSpeech
	Error
)

func (k Kind) String() string {
	switch k {
	case RecordingStarted:
		return "recording-started"
	case RecordingStopped:
		return "recording-stopped"
	case Transcribing:
		return "transcribing"
	case Result:
		return "result"
	case NoSpeech:
		return "no-speech"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one status update. Events are values: observers never share
// mutable state with the session.
type Event struct {
	Kind     Kind
	TextLen  int           // Result: length of the injected text
	Preview  string        // Result: truncated text for notifications
	Message  string        // Error: human-readable description
	Duration time.Duration // Result: engine processing time
	At       time.Time
}

// Broadcaster fans events out to subscribers. Publish never blocks: a
// subscriber that cannot keep up loses events, which is acceptable since
// status is advisory.
type Broadcaster struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe returns a channel receiving future events. buffer bounds how
// far the subscriber may lag before events are dropped for it.
func (b *Broadcaster) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (b *Broadcaster) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("status event dropped", "kind", ev.Kind.String())
		}
	}
}

// Close closes all subscriber channels. Publish after Close is a no-op.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
