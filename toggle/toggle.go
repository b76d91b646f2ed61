// Package toggle is the single external trigger surface for the daemon.
// A second invocation of the program (bound to a compositor hotkey) calls
// Send, which delivers SIGUSR1 to the pid recorded in the instance lock
// file. Inside the running instance a Listener turns those signals into
// sequential handler calls.
package toggle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adityasinghcodes/superwhisper-linux/singleton"
)

// ErrNoInstance is returned by Send when no live daemon can be reached.
var ErrNoInstance = errors.New("no running instance")

// Send delivers one toggle request to the instance recorded in pidFile.
// It does not wait for the recording to actually start or stop.
func Send(pidFile string) error {
	pid, err := singleton.ReadPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoInstance
		}
		return fmt.Errorf("read pid file: %w", err)
	}

	if err := syscall.Kill(pid, syscall.SIGUSR1); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("%w (stale pid %d)", ErrNoInstance, pid)
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	slog.Debug("toggle signal sent", "pid", pid)
	return nil
}

// queueSize bounds in-flight requests. Requests beyond it block the pump,
// never the OS signal delivery and never the handler mid-call.
const queueSize = 64

// Listener receives toggle requests and delivers them strictly in arrival
// order to a single handler. Safe to Trigger concurrently with the
// handler's own processing of a prior toggle: late requests queue.
type Listener struct {
	sig   chan os.Signal
	queue chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewListener creates a listener with the SIGUSR1 handler already
// installed. Call it as soon as the instance lock is held: once the pid
// file is visible a toggle can arrive at any moment, and signals sent
// before Notify would be discarded by the runtime. Requests arriving
// before Start buffer in the signal channel and are drained on Start.
func NewListener() *Listener {
	l := &Listener{
		sig:   make(chan os.Signal, queueSize),
		queue: make(chan struct{}, queueSize),
		done:  make(chan struct{}),
	}
	signal.Notify(l.sig, syscall.SIGUSR1)
	return l
}

// Start begins sequential delivery to handler, starting with any signals
// that arrived since NewListener. It must be called once.
func (l *Listener) Start(handler func()) error {
	if handler == nil {
		return errors.New("toggle: nil handler")
	}

	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("toggle: listener already started")
	}
	l.started = true
	l.mu.Unlock()

	// Pump: signal channel -> ordered queue.
	go func() {
		for {
			select {
			case <-l.sig:
				slog.Debug("toggle signal received")
				l.enqueue()
			case <-l.done:
				return
			}
		}
	}()

	// Delivery: one goroutine, so requests are never reordered and the
	// handler never observes overlapping calls.
	go func() {
		for {
			select {
			case <-l.queue:
				handler()
			case <-l.done:
				return
			}
		}
	}()

	return nil
}

// Trigger enqueues one toggle request directly, bypassing the signal
// transport. The in-process hotkey listener uses this path.
func (l *Listener) Trigger() {
	l.enqueue()
}

func (l *Listener) enqueue() {
	select {
	case l.queue <- struct{}{}:
	case <-l.done:
	}
}

// Stop unregisters the signal handler and stops delivery. Safe to call
// whether or not Start ran.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	signal.Stop(l.sig)
	close(l.done)
}
