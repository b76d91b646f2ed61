// Package audiocapture owns the microphone device handle and buffers
// captured samples for one recording session.
package audiocapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TargetSampleRate is what the transcription engine expects.
const TargetSampleRate = 16000

var (
	// ErrDeviceNotFound is returned when the configured device identifier
	// is no longer present.
	ErrDeviceNotFound = errors.New("audio device not found")

	// ErrDeviceNotReady is returned when the audio subsystem has not
	// finished initializing, after the bounded retry window is exhausted.
	ErrDeviceNotReady = errors.New("audio subsystem not ready")

	// ErrNotCapturing is returned when stopping without a prior
	// successful start. This is a programming error.
	ErrNotCapturing = errors.New("not capturing audio")

	// ErrAlreadyCapturing is returned when starting while a capture is
	// in progress.
	ErrAlreadyCapturing = errors.New("already capturing audio")
)

// Device describes an audio input device.
type Device struct {
	Index      int
	Name       string
	Channels   int
	SampleRate int
}

// Buffer holds the captured samples of one recording session. Ownership
// transfers to the caller when StopCapture returns.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Start      time.Time
	Device     string
}

// Seconds returns the audio length.
func (b *Buffer) Seconds() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// RetryPolicy bounds the readiness retry at capture start. The audio
// subsystem (PipeWire/PulseAudio) may come up after the daemon itself,
// most visibly right after login with autostart.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy waits roughly ten seconds in total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 6, BaseDelay: 300 * time.Millisecond, MaxDelay: 3 * time.Second}
}

// backend abstracts the audio host API so the manager is testable
// without a sound card.
type backend interface {
	devices() ([]Device, error)
	open(dev Device, onSamples func([]float32)) (stream, error)
}

type stream interface {
	stop() error
}

// Manager owns the device handle while recording. Exactly one capture
// may be active at a time.
type Manager struct {
	mu    sync.Mutex
	be    backend
	retry RetryPolicy

	capturing  bool
	stream     stream
	chunks     [][]float32
	start      time.Time
	deviceName string
	deviceRate int
}

// NewManager creates a manager backed by PortAudio.
func NewManager() *Manager {
	return &Manager{be: newPortAudioBackend(), retry: DefaultRetryPolicy()}
}

func newManagerWith(be backend, retry RetryPolicy) *Manager {
	return &Manager{be: be, retry: retry}
}

// StartCapture begins accumulating samples from the named device. An empty
// name selects the default input. It retries with bounded backoff while the
// audio subsystem is still coming up, then fails with ErrDeviceNotReady.
// A present subsystem that no longer carries the named device fails fast
// with ErrDeviceNotFound.
func (m *Manager) StartCapture(ctx context.Context, deviceName string) error {
	m.mu.Lock()
	if m.capturing {
		m.mu.Unlock()
		return ErrAlreadyCapturing
	}
	m.mu.Unlock()

	dev, err := m.resolveDevice(ctx, deviceName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capturing {
		return ErrAlreadyCapturing
	}

	m.chunks = nil
	st, err := m.be.open(dev, m.appendChunk)
	if err != nil {
		return fmt.Errorf("open input stream %q: %w", dev.Name, err)
	}

	m.stream = st
	m.capturing = true
	m.start = time.Now()
	m.deviceName = dev.Name
	m.deviceRate = dev.SampleRate
	slog.Debug("recording started", "device", dev.Name, "rate", dev.SampleRate)
	return nil
}

// StopCapture stops the stream, releases the device handle and returns the
// accumulated samples resampled to TargetSampleRate.
func (m *Manager) StopCapture() (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.capturing {
		return nil, ErrNotCapturing
	}

	err := m.stream.stop()
	m.stream = nil
	m.capturing = false
	if err != nil {
		m.chunks = nil
		return nil, fmt.Errorf("stop input stream: %w", err)
	}

	total := 0
	for _, c := range m.chunks {
		total += len(c)
	}
	samples := make([]float32, 0, total)
	for _, c := range m.chunks {
		samples = append(samples, c...)
	}
	m.chunks = nil

	if peak := peakAmplitude(samples); len(samples) > 0 && peak < 0.01 {
		slog.Warn("audio level very low, check microphone", "peak", peak)
	}

	if m.deviceRate != TargetSampleRate {
		slog.Debug("resampling", "from", m.deviceRate, "to", TargetSampleRate)
		samples = resample(samples, m.deviceRate, TargetSampleRate)
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: TargetSampleRate,
		Channels:   1,
		Start:      m.start,
		Device:     m.deviceName,
	}, nil
}

// Capturing reports whether a capture is active.
func (m *Manager) Capturing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturing
}

// Duration returns how long the current capture has been running.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.capturing {
		return 0
	}
	return time.Since(m.start)
}

// Devices lists available input devices, filtered to likely microphones.
func (m *Manager) Devices() ([]Device, error) {
	devs, err := m.be.devices()
	if err != nil {
		return nil, err
	}
	return filterMicrophones(devs), nil
}

// DevicesWithRetry is Devices with the same bounded readiness retry as
// StartCapture, for use right after login when restoring the saved device.
func (m *Manager) DevicesWithRetry(ctx context.Context) ([]Device, error) {
	var devs []Device
	err := m.withReadinessRetry(ctx, func() error {
		var derr error
		devs, derr = m.Devices()
		if derr != nil {
			return derr
		}
		if len(devs) == 0 {
			return errors.New("no input devices yet")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return devs, nil
}

func (m *Manager) appendChunk(samples []float32) {
	chunk := make([]float32, len(samples))
	copy(chunk, samples)

	m.mu.Lock()
	if m.capturing {
		m.chunks = append(m.chunks, chunk)
	}
	m.mu.Unlock()
}

func (m *Manager) resolveDevice(ctx context.Context, name string) (Device, error) {
	var dev Device
	err := m.withReadinessRetry(ctx, func() error {
		devs, derr := m.be.devices()
		if derr != nil {
			return derr
		}
		if len(devs) == 0 {
			return errors.New("no input devices yet")
		}

		if name == "" {
			dev = pickDefault(devs)
			return nil
		}
		for _, d := range devs {
			if d.Name == name {
				dev = d
				return nil
			}
		}
		// The subsystem is up but the device is gone: no point retrying.
		return fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	})
	if err != nil {
		return Device{}, err
	}
	return dev, nil
}

// withReadinessRetry runs fn with bounded backoff. ErrDeviceNotFound
// escapes immediately; anything else is treated as "not ready yet" until
// attempts are exhausted, then surfaced as ErrDeviceNotReady.
func (m *Manager) withReadinessRetry(ctx context.Context, fn func() error) error {
	delay := m.retry.BaseDelay
	var last error
	for attempt := 0; attempt < m.retry.Attempts; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}
		if errors.Is(last, ErrDeviceNotFound) {
			return last
		}
		if attempt == m.retry.Attempts-1 {
			break
		}
		slog.Debug("audio subsystem not ready, retrying", "attempt", attempt+1, "delay", delay, "error", last)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if m.retry.MaxDelay > 0 && delay > m.retry.MaxDelay {
			delay = m.retry.MaxDelay
		}
	}
	return fmt.Errorf("%w: %v", ErrDeviceNotReady, last)
}

func peakAmplitude(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
