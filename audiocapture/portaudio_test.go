package audiocapture

import (
	"errors"
	"testing"
	"time"
)

func TestReadLoopAbortsOnPersistentErrors(t *testing.T) {
	streamErr := errors.New("stream dead")
	ps := &paStream{
		read:    func() error { return streamErr },
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go ps.readLoop(make([]float32, framesPerBuffer), func([]float32) {
		t.Error("samples delivered from a failing stream")
	})

	select {
	case <-ps.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("read loop kept spinning on a dead stream")
	}
	if !errors.Is(ps.readErr, streamErr) {
		t.Errorf("readErr = %v, want %v", ps.readErr, streamErr)
	}
}

func TestReadLoopRecoversFromTransientErrors(t *testing.T) {
	fails := 3
	delivered := make(chan struct{}, 1)
	ps := &paStream{
		read: func() error {
			if fails > 0 {
				fails--
				return errors.New("input overflowed")
			}
			return nil
		},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go ps.readLoop(make([]float32, framesPerBuffer), func([]float32) {
		select {
		case delivered <- struct{}{}:
		default:
		}
	})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("no samples after transient errors cleared")
	}

	close(ps.done)
	<-ps.stopped
	if ps.readErr != nil {
		t.Errorf("readErr = %v after recovery, want nil", ps.readErr)
	}
}
