package audiocapture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// paBackend talks to the real audio host through PortAudio.
type paBackend struct {
	initOnce sync.Once
	initErr  error
}

func newPortAudioBackend() *paBackend {
	return &paBackend{}
}

func (p *paBackend) ensureInit() error {
	p.initOnce.Do(func() {
		p.initErr = portaudio.Initialize()
	})
	return p.initErr
}

func (p *paBackend) devices() ([]Device, error) {
	if err := p.ensureInit(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var out []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			Index:      i,
			Name:       info.Name,
			Channels:   info.MaxInputChannels,
			SampleRate: int(info.DefaultSampleRate),
		})
	}
	return out, nil
}

func (p *paBackend) open(dev Device, onSamples func([]float32)) (stream, error) {
	if err := p.ensureInit(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if dev.Index < 0 || dev.Index >= len(infos) {
		return nil, fmt.Errorf("%w: index %d", ErrDeviceNotFound, dev.Index)
	}
	info := infos[dev.Index]

	in := make([]float32, framesPerBuffer)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(dev.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	st, err := portaudio.OpenStream(params, in)
	if err != nil {
		return nil, err
	}
	if err := st.Start(); err != nil {
		_ = st.Close()
		return nil, err
	}

	ps := &paStream{
		st:      st,
		read:    st.Read,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go ps.readLoop(in, onSamples)
	return ps, nil
}

// A dead stream (device unplugged mid-capture) fails every Read
// immediately; the loop must not spin on it.
const (
	maxConsecutiveReadErrors = 50
	readRetryDelay           = 10 * time.Millisecond
)

type paStream struct {
	st      *portaudio.Stream
	read    func() error
	done    chan struct{}
	stopped chan struct{}

	// readErr is written by readLoop before stopped closes and read
	// only after <-stopped.
	readErr error
}

func (s *paStream) readLoop(in []float32, onSamples func([]float32)) {
	defer close(s.stopped)
	consecutive := 0
	for {
		select {
		case <-s.done:
			return
		default:
		}
		if err := s.read(); err != nil {
			consecutive++
			if consecutive >= maxConsecutiveReadErrors {
				slog.Error("input stream failed, aborting capture", "error", err)
				s.readErr = err
				return
			}
			// Overflows happen when the consumer stalls briefly.
			slog.Debug("stream read", "error", err)
			select {
			case <-time.After(readRetryDelay):
			case <-s.done:
				return
			}
			continue
		}
		consecutive = 0
		onSamples(in)
	}
}

func (s *paStream) stop() error {
	close(s.done)
	<-s.stopped
	err := s.st.Stop()
	if cerr := s.st.Close(); err == nil {
		err = cerr
	}
	if s.readErr != nil {
		return fmt.Errorf("input stream failed during capture: %w", s.readErr)
	}
	return err
}
