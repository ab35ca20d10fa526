// Package renderthread runs Go code against a GL context that belongs to a
// thread Go does not own.
//
// Unity calls the plugin's render event on its render thread with the
// context current. Loop.Run holds that thread inside the callback, pumping
// queued GL calls and closures from Do until the event handler returns.
package renderthread

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrWrongThread is returned when Run is entered from a thread other than
// the one that first ran it.
var ErrWrongThread = errors.New("renderthread: not the render thread")

// Worker is a GL command queue drained on the context's thread. It is
// satisfied by golang.org/x/mobile/gl.Worker.
type Worker interface {
	WorkAvailable() <-chan struct{}
	DoWork()
}

// Loop pumps a Worker on the render thread.
type Loop struct {
	worker  Worker
	enforce bool
	tid     func() int

	mu    sync.Mutex
	owner int // first thread to Run, 0 until then

	fns chan func()
	run sync.Mutex // one Run at a time
}

// New returns a loop draining w. With enforce set, Run refuses any thread
// but the first one it ran on.
func New(w Worker, enforce bool) *Loop {
	return &Loop{
		worker:  w,
		enforce: enforce,
		tid:     unix.Gettid,
		fns:     make(chan func()),
	}
}

// SetThreadID replaces the thread-id source. Tests use it to simulate
// calls from other threads.
func (l *Loop) SetThreadID(tid func() int) { l.tid = tid }

// Owner returns the render thread id, or 0 before the first Run.
func (l *Loop) Owner() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

func (l *Loop) checkThread() error {
	tid := l.tid()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == 0 {
		l.owner = tid
		slog.Info("renderthread: bound", "tid", tid)
		return nil
	}
	if tid != l.owner {
		if l.enforce {
			return fmt.Errorf("%w: tid %d, render thread %d", ErrWrongThread, tid, l.owner)
		}
		slog.Warn("renderthread: render thread changed", "tid", tid, "was", l.owner)
	}
	return nil
}

// Run calls fn on a new goroutine while the calling thread, which must hold
// the GL context, executes its GL work and Do closures. It returns once fn
// has returned and all queued work has drained.
func (l *Loop) Run(fn func()) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := l.checkThread(); err != nil {
		return err
	}
	l.run.Lock()
	defer l.run.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("renderthread: handler panicked", "panic", r)
			}
		}()
		fn()
	}()

	var work <-chan struct{}
	if l.worker != nil {
		work = l.worker.WorkAvailable()
	}
	for {
		select {
		case <-work:
			l.worker.DoWork()
		case f := <-l.fns:
			f()
		case <-done:
			l.drain(work)
			return nil
		}
	}
}

func (l *Loop) drain(work <-chan struct{}) {
	for {
		select {
		case <-work:
			l.worker.DoWork()
		default:
			return
		}
	}
}

// Do runs f on the render thread and waits for it. It may only be called
// from inside the fn passed to Run.
func (l *Loop) Do(f func()) {
	ack := make(chan struct{})
	l.fns <- func() {
		defer close(ack)
		f()
	}
	<-ack
}
