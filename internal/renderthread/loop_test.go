package renderthread

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// fakeWorker counts DoWork calls; each Queue makes one unit of work
// available.
type fakeWorker struct {
	ch    chan struct{}
	did   atomic.Int32
	onTID atomic.Int32
}

func newFakeWorker() *fakeWorker { return &fakeWorker{ch: make(chan struct{}, 8)} }

func (w *fakeWorker) WorkAvailable() <-chan struct{} { return w.ch }

func (w *fakeWorker) DoWork() {
	w.did.Add(1)
	w.onTID.Store(int32(unix.Gettid()))
}

func (w *fakeWorker) Queue() { w.ch <- struct{}{} }

// TestDoRunsOnCallingThread verifies closures passed to Do execute on the
// thread that called Run.
func TestDoRunsOnCallingThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	want := unix.Gettid()

	l := New(newFakeWorker(), true)
	var got int
	err := l.Run(func() {
		l.Do(func() { got = unix.Gettid() })
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != want {
		t.Errorf("Do ran on tid %d, want %d", got, want)
	}
	if l.Owner() != want {
		t.Errorf("Owner = %d, want %d", l.Owner(), want)
	}
}

// TestWorkIsPumped verifies queued GL work is executed on the calling thread,
// including work queued just before the handler returns.
func TestWorkIsPumped(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	want := unix.Gettid()

	w := newFakeWorker()
	l := New(w, true)
	err := l.Run(func() {
		w.Queue()
		w.Queue()
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := w.did.Load(); n != 2 {
		t.Errorf("DoWork ran %d times, want 2", n)
	}
	if int(w.onTID.Load()) != want {
		t.Errorf("DoWork ran on tid %d, want %d", w.onTID.Load(), want)
	}
}

func TestWrongThreadRejected(t *testing.T) {
	l := New(nil, true)
	tid := 100
	l.SetThreadID(func() int { return tid })

	if err := l.Run(func() {}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	tid = 200
	ran := false
	if err := l.Run(func() { ran = true }); !errors.Is(err, ErrWrongThread) {
		t.Fatalf("Run = %v, want ErrWrongThread", err)
	}
	if ran {
		t.Error("handler ran on the wrong thread")
	}
}

func TestWrongThreadAllowedWhenNotEnforced(t *testing.T) {
	l := New(nil, false)
	tid := 100
	l.SetThreadID(func() int { return tid })
	l.Run(func() {})

	tid = 200
	ran := false
	if err := l.Run(func() { ran = true }); err != nil || !ran {
		t.Fatalf("Run = %v, ran = %v", err, ran)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	l := New(nil, true)
	done := make(chan error, 1)
	go func() { done <- l.Run(func() { panic("boom") }) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
