package jni_test

import (
	"errors"
	"testing"

	"ucamera/internal/jni"
	"ucamera/internal/jni/jnitest"
)

// TestAttachOnAttachedThread verifies attach/detach is a no-op on a thread
// the JVM already knows.
func TestAttachOnAttachedThread(t *testing.T) {
	vm := jnitest.NewVM(true)
	b := jni.NewBridge(vm)

	s, err := b.Attach()
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if s.AttachedHere {
		t.Error("AttachedHere = true on an already attached thread")
	}
	s.Detach()

	if vm.Attaches != 0 || vm.Detaches != 0 {
		t.Errorf("attaches=%d detaches=%d, want 0/0", vm.Attaches, vm.Detaches)
	}
	if !vm.Attached() {
		t.Error("thread was detached")
	}
}

// TestAttachOnDetachedThread verifies a scope that attaches also detaches.
func TestAttachOnDetachedThread(t *testing.T) {
	vm := jnitest.NewVM(false)
	b := jni.NewBridge(vm)

	s, err := b.Attach()
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !s.AttachedHere {
		t.Fatal("AttachedHere = false after attaching")
	}
	s.Detach()
	s.Detach() // second call is ignored

	if vm.Attaches != 1 || vm.Detaches != 1 {
		t.Errorf("attaches=%d detaches=%d, want 1/1", vm.Attaches, vm.Detaches)
	}
	if vm.Attached() {
		t.Error("thread still attached")
	}
}

func TestAttachFailure(t *testing.T) {
	vm := jnitest.NewVM(false)
	vm.AttachStatus = jni.ErrVersion
	b := jni.NewBridge(vm)

	if _, err := b.Attach(); !errors.Is(err, jni.ErrAttach) {
		t.Fatalf("Attach = %v, want ErrAttach", err)
	}
	if err := b.Do(func(jni.Env) error { t.Fatal("fn ran"); return nil }); !errors.Is(err, jni.ErrAttach) {
		t.Fatalf("Do = %v, want ErrAttach", err)
	}
}

func TestNilBridge(t *testing.T) {
	var b *jni.Bridge
	if _, err := b.Attach(); !errors.Is(err, jni.ErrNoVM) {
		t.Fatalf("Attach = %v, want ErrNoVM", err)
	}
}

func TestCheckExceptionClears(t *testing.T) {
	env := jnitest.NewEnv()
	if jni.CheckException(env, "noop") {
		t.Fatal("reported exception with none pending")
	}

	env.Throw()
	if !jni.CheckException(env, "call") {
		t.Fatal("pending exception not reported")
	}
	if env.Described != 1 || env.Cleared != 1 {
		t.Errorf("described=%d cleared=%d, want 1/1", env.Described, env.Cleared)
	}
	if env.ExceptionCheck() {
		t.Error("exception still pending")
	}
}

// TestGlobalRefReleaseOnce verifies the reference is deleted exactly once.
func TestGlobalRefReleaseOnce(t *testing.T) {
	vm := jnitest.NewVM(false)
	b := jni.NewBridge(vm)

	ref, err := b.NewGlobalRef(vm.Env, vm.Env.Local())
	if err != nil {
		t.Fatalf("NewGlobalRef: %v", err)
	}
	if !vm.Env.IsLive(ref.Object()) {
		t.Fatal("global ref not live")
	}

	ref.Release()
	ref.Release()

	if vm.Env.LiveGlobals() != 0 {
		t.Errorf("%d live globals after release", vm.Env.LiveGlobals())
	}
	if vm.Env.DoubleDeletes != 0 {
		t.Errorf("%d double deletes", vm.Env.DoubleDeletes)
	}
	if !ref.Released() {
		t.Error("Released() = false")
	}
	// Release attached the detached thread transiently.
	if vm.Attaches != 1 || vm.Detaches != 1 || vm.Attached() {
		t.Errorf("attaches=%d detaches=%d attached=%v", vm.Attaches, vm.Detaches, vm.Attached())
	}
}

func TestNewGlobalRefNull(t *testing.T) {
	vm := jnitest.NewVM(true)
	if _, err := jni.NewBridge(vm).NewGlobalRef(vm.Env, 0); err == nil {
		t.Fatal("expected error for null object")
	}
}

func TestResolveMethod(t *testing.T) {
	env := jnitest.NewEnv()
	env.Define("com/uralstech/ucamera/STCaptureSessionWrapper", "startCaptureSession", "(I)Z", 77)

	m, err := jni.ResolveMethod(env, "com/uralstech/ucamera/STCaptureSessionWrapper", "startCaptureSession", "(I)Z")
	if err != nil {
		t.Fatalf("ResolveMethod: %v", err)
	}
	if m.ID != 77 || !m.Boolean {
		t.Errorf("method = %+v", m)
	}

	if _, err := jni.ResolveMethod(env, "com/example/Missing", "startCaptureSession", "(I)Z"); !errors.Is(err, jni.ErrNoMethod) {
		t.Errorf("missing class: %v", err)
	}
	if env.ExceptionCheck() {
		t.Error("exception left pending after failed lookup")
	}
	if _, err := jni.ResolveMethod(env, "com/uralstech/ucamera/STCaptureSessionWrapper", "startCaptureSession", "(J)Z"); err == nil {
		t.Error("unsupported signature accepted")
	}
}

func TestMethodCall(t *testing.T) {
	env := jnitest.NewEnv()
	obj := env.Local()

	m := jni.Method{ID: 9, Name: "startCaptureSession", Boolean: true}
	ok, err := m.Call(env, obj, 42)
	if err != nil || !ok {
		t.Fatalf("Call = %v, %v", ok, err)
	}
	if len(env.Calls) != 1 || env.Calls[0].Arg != 42 {
		t.Fatalf("calls = %+v", env.Calls)
	}

	env.ThrowOnCall = true
	if _, err := m.Call(env, obj, 43); !errors.Is(err, jni.ErrException) {
		t.Fatalf("Call with exception = %v", err)
	}
	if env.ExceptionCheck() {
		t.Error("exception left pending")
	}

	void := jni.Method{ID: 10, Name: "startCaptureSession"}
	env.ThrowOnCall = false
	if ok, err := void.Call(env, obj, 1); err != nil || !ok {
		t.Errorf("void Call = %v, %v", ok, err)
	}
	if _, err := (jni.Method{}).Call(env, obj, 1); !errors.Is(err, jni.ErrNoMethod) {
		t.Errorf("unresolved Call = %v", err)
	}
}
