package toggle

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestSendNoPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "superwhisper.pid")
	if err := Send(path); !errors.Is(err, ErrNoInstance) {
		t.Fatalf("Send err = %v, want ErrNoInstance", err)
	}
}

func TestSendStalePid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "superwhisper.pid")
	// A pid that is almost certainly not in use.
	if err := os.WriteFile(path, []byte("4194300"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Send(path); !errors.Is(err, ErrNoInstance) {
		t.Fatalf("Send err = %v, want ErrNoInstance", err)
	}
}

func TestListenerDeliversInOrder(t *testing.T) {
	l := NewListener()
	defer l.Stop()

	var mu sync.Mutex
	var got []int
	n := 0
	done := make(chan struct{})

	err := l.Start(func() {
		mu.Lock()
		n++
		got = append(got, n)
		if n == 5 {
			close(done)
		}
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		l.Trigger()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("delivery order broken: %v", got)
		}
	}
}

func TestListenerQueuesWhileHandlerBusy(t *testing.T) {
	l := NewListener()
	defer l.Stop()

	block := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})

	err := l.Start(func() {
		mu.Lock()
		calls++
		c := calls
		mu.Unlock()
		if c == 1 {
			<-block // simulate a slow first toggle
		}
		if c == 3 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	l.Trigger()
	// These arrive while the first is still being applied; they must be
	// queued for sequential delivery, never dropped.
	l.Trigger()
	l.Trigger()
	close(block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued toggles were not delivered")
	}
}

func TestListenerStartTwice(t *testing.T) {
	l := NewListener()
	defer l.Stop()

	if err := l.Start(func() {}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := l.Start(func() {}); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestListenerNilHandler(t *testing.T) {
	l := NewListener()
	defer l.Stop()
	if err := l.Start(nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestSignalsBeforeStartAreDelivered(t *testing.T) {
	l := NewListener()
	defer l.Stop()

	// Signals landing between lock acquisition and the end of daemon
	// setup buffer in the signal channel; Start must drain them.
	l.sig <- syscall.SIGUSR1
	l.sig <- syscall.SIGUSR1

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	err := l.Start(func() {
		mu.Lock()
		calls++
		if calls == 2 {
			close(done)
		}
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("buffered signals were not delivered after Start")
	}
}

func TestStopWithoutStart(t *testing.T) {
	l := NewListener()
	l.Stop()
	l.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewListener()
	if err := l.Start(func() {}); err != nil {
		t.Fatal(err)
	}
	l.Stop()
	l.Stop()
}
