package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adityasinghcodes/superwhisper-linux/audiocapture"
	"github.com/adityasinghcodes/superwhisper-linux/clipboard"
	"github.com/adityasinghcodes/superwhisper-linux/internal/types"
	"github.com/adityasinghcodes/superwhisper-linux/langdetect"
	"github.com/adityasinghcodes/superwhisper-linux/status"
	"github.com/adityasinghcodes/superwhisper-linux/stt"
)

// State is the session's phase. Exactly one phase is active at a time.
type State int

const (
	// Idle means no capture and no transcription in flight.
	Idle State = iota
	// Recording means the microphone stream is open.
	Recording
	// Transcribing means a finished recording is being converted to text.
	Transcribing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

const previewLen = 60

// Capturer is the slice of the audio manager the session needs.
type Capturer interface {
	StartCapture(ctx context.Context, deviceName string) error
	StopCapture() (*audiocapture.Buffer, error)
}

// Engine converts captured samples to text.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, language string) (*stt.Result, error)
}

// TextInjector delivers a transcript into the focused application.
type TextInjector interface {
	Inject(ctx context.Context, text string) error
}

// Recorder persists finished transcriptions. It is optional.
type Recorder interface {
	Add(tr types.Transcription) error
}

type transcribeOutcome struct {
	result *stt.Result
	buffer *audiocapture.Buffer
	took   time.Duration
	err    error
}

// Session drives the record/transcribe/inject cycle. All state
// transitions happen on the Run goroutine; Toggle only enqueues.
type Session struct {
	capturer Capturer
	engine   Engine
	injector TextInjector
	bus      *status.Broadcaster
	recorder Recorder

	device   func() string
	language string

	state   State
	toggles chan struct{}
	results chan transcribeOutcome
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Capturer Capturer
	Engine   Engine
	Injector TextInjector
	Bus      *status.Broadcaster
	Recorder Recorder

	// Device returns the microphone name to use. It is consulted on
	// every capture start so configuration edits apply without a
	// daemon restart. Nil means default input.
	Device   func() string
	Language string
}

// NewSession creates a session in the Idle state.
func NewSession(opts SessionOptions) *Session {
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	device := opts.Device
	if device == nil {
		device = func() string { return "" }
	}
	return &Session{
		capturer: opts.Capturer,
		engine:   opts.Engine,
		injector: opts.Injector,
		bus:      opts.Bus,
		recorder: opts.Recorder,
		device:   device,
		language: lang,
		state:    Idle,
		toggles:  make(chan struct{}, 64),
		results:  make(chan transcribeOutcome, 1),
	}
}

// Toggle requests a state change. Presses are never dropped: when the
// queue is full the send blocks until the run loop drains it. Callers
// deliver sequentially (the listener's delivery goroutine), so blocking
// here backpressures the queue without reordering.
func (s *Session) Toggle() {
	s.toggles <- struct{}{}
}

// CurrentState reports the current phase. Only safe to call from tests that
// know Run is parked; live readers should watch the status bus instead.
func (s *Session) CurrentState() State {
	return s.state
}

// Run processes toggles and transcription results until ctx is done.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if s.state == Recording {
				if _, err := s.capturer.StopCapture(); err != nil {
					slog.Warn("stop capture on shutdown", "error", err)
				}
			}
			return
		case <-s.toggles:
			s.handleToggle(ctx)
		case out := <-s.results:
			s.handleResult(ctx, out)
		}
	}
}

func (s *Session) handleToggle(ctx context.Context) {
	switch s.state {
	case Idle:
		s.startRecording(ctx)
	case Recording:
		s.stopRecording(ctx)
	case Transcribing:
		// Presses are not queued as new recordings while text is pending.
		slog.Debug("toggle ignored while transcribing")
	}
}

func (s *Session) startRecording(ctx context.Context) {
	device := s.device()
	if device == "auto" {
		// The capture manager takes an empty name for the default input.
		device = ""
	}
	if err := s.capturer.StartCapture(ctx, device); err != nil {
		slog.Error("start capture", "error", err)
		s.bus.Publish(status.Event{Kind: status.Error, Message: captureErrorMessage(err)})
		return
	}
	s.state = Recording
	slog.Info("recording started", "device", device)
	s.bus.Publish(status.Event{Kind: status.RecordingStarted})
}

func (s *Session) stopRecording(ctx context.Context) {
	// Transition before the blocking work so a re-press during stop or
	// dispatch cannot start a second capture.
	s.state = Transcribing
	s.bus.Publish(status.Event{Kind: status.RecordingStopped})

	buf, err := s.capturer.StopCapture()
	if err != nil {
		slog.Error("stop capture", "error", err)
		s.bus.Publish(status.Event{Kind: status.Error, Message: "failed to stop recording"})
		s.state = Idle
		return
	}
	if buf == nil || len(buf.Samples) == 0 {
		s.bus.Publish(status.Event{Kind: status.Error, Message: "no audio recorded"})
		s.state = Idle
		return
	}

	slog.Info("transcribing", "seconds", buf.Seconds())
	s.bus.Publish(status.Event{Kind: status.Transcribing, Duration: time.Duration(buf.Seconds() * float64(time.Second))})

	go func() {
		start := time.Now()
		res, err := s.engine.Transcribe(ctx, buf.Samples, s.language)
		s.results <- transcribeOutcome{result: res, buffer: buf, took: time.Since(start), err: err}
	}()
}

func (s *Session) handleResult(ctx context.Context, out transcribeOutcome) {
	defer func() { s.state = Idle }()

	if out.err != nil {
		slog.Error("transcribe", "error", out.err)
		s.bus.Publish(status.Event{Kind: status.Error, Message: "transcription failed"})
		return
	}

	text := strings.TrimSpace(out.result.Text)
	if text == "" {
		slog.Info("no speech detected")
		s.bus.Publish(status.Event{Kind: status.NoSpeech})
		return
	}

	lang := out.result.Language
	if lang == "" || lang == "auto" {
		lang, _ = langdetect.Detect(text)
	}

	if err := s.injector.Inject(ctx, text); err != nil {
		if errors.Is(err, clipboard.ErrDegraded) {
			slog.Warn("paste degraded, text left on clipboard", "error", err)
			s.bus.Publish(status.Event{Kind: status.Error, Message: "paste failed, text copied to clipboard"})
		} else {
			slog.Error("inject text", "error", err)
			s.bus.Publish(status.Event{Kind: status.Error, Message: "failed to deliver text"})
			return
		}
	}

	slog.Info("transcription complete",
		"chars", len(text),
		"language", lang,
		"audio_seconds", out.buffer.Seconds(),
		"took", out.took,
	)
	s.bus.Publish(status.Event{
		Kind:     status.Result,
		TextLen:  len(text),
		Preview:  preview(text),
		Duration: out.took,
	})

	if s.recorder != nil {
		tr := types.Transcription{
			ID:           uuid.NewString(),
			Text:         text,
			Language:     lang,
			AudioSeconds: out.buffer.Seconds(),
			TookSeconds:  out.took.Seconds(),
			Device:       out.buffer.Device,
			CreatedAt:    time.Now(),
		}
		if err := s.recorder.Add(tr); err != nil {
			slog.Warn("record history", "error", err)
		}
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}

func captureErrorMessage(err error) string {
	switch {
	case errors.Is(err, audiocapture.ErrDeviceNotFound):
		return "microphone not found"
	case errors.Is(err, audiocapture.ErrDeviceNotReady):
		return "microphone not ready"
	default:
		return "failed to start recording"
	}
}
