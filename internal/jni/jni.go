// Package jni keeps JVM attachment and global-reference lifetimes explicit.
//
// Native code reaches the JVM through a VM. Any goroutine that needs an Env
// goes through Bridge.Attach, which pins the goroutine to its OS thread for
// the lifetime of the Scope and attaches that thread only when it is not
// attached already.
package jni

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
)

// Object is an opaque jobject.
type Object uintptr

// MethodID is an opaque jmethodID.
type MethodID uintptr

// Status mirrors the jint codes returned by the invocation API.
type Status int32

const (
	OK          Status = 0
	ErrGeneric  Status = -1
	ErrDetached Status = -2
	ErrVersion  Status = -3
)

// Errors returned by the bridge.
var (
	ErrNoVM      = errors.New("jni: no JavaVM")
	ErrAttach    = errors.New("jni: cannot attach thread")
	ErrException = errors.New("jni: pending exception")
	ErrNoMethod  = errors.New("jni: method not resolved")
)

// Env is the subset of JNIEnv the plugin uses. It is only valid on the OS
// thread it was obtained on.
type Env interface {
	NewGlobalRef(obj Object) Object
	DeleteGlobalRef(obj Object)
	DeleteLocalRef(obj Object)
	FindClass(name string) Object
	GetMethodID(cls Object, name, sig string) MethodID
	CallBooleanMethod(obj Object, m MethodID, arg int32) bool
	CallVoidMethod(obj Object, m MethodID, arg int32)
	ExceptionCheck() bool
	ExceptionDescribe()
	ExceptionClear()
}

// VM is the subset of JavaVM the plugin uses.
type VM interface {
	GetEnv() (Env, Status)
	AttachCurrentThread() (Env, Status)
	DetachCurrentThread() Status
}

// Bridge attaches goroutines to a VM on demand.
type Bridge struct {
	vm VM
}

func NewBridge(vm VM) *Bridge {
	return &Bridge{vm: vm}
}

// Scope is an Env plus the obligation to detach if this scope attached it.
type Scope struct {
	Env          Env
	AttachedHere bool

	vm   VM
	done bool
}

// Attach returns an Env for the calling goroutine. The goroutine stays locked
// to its OS thread until Detach.
func (b *Bridge) Attach() (*Scope, error) {
	if b == nil || b.vm == nil {
		return nil, ErrNoVM
	}
	runtime.LockOSThread()

	env, st := b.vm.GetEnv()
	switch st {
	case OK:
		return &Scope{Env: env, vm: b.vm}, nil
	case ErrDetached:
		slog.Debug("jni: attaching thread")
		env, st = b.vm.AttachCurrentThread()
		if st != OK {
			runtime.UnlockOSThread()
			slog.Error("jni: attach failed", "status", st)
			return nil, fmt.Errorf("%w: status %d", ErrAttach, st)
		}
		return &Scope{Env: env, AttachedHere: true, vm: b.vm}, nil
	default:
		runtime.UnlockOSThread()
		slog.Error("jni: GetEnv failed", "status", st)
		return nil, fmt.Errorf("%w: GetEnv status %d", ErrAttach, st)
	}
}

// Detach undoes Attach. The thread is detached only if Attach attached it.
func (s *Scope) Detach() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if s.AttachedHere {
		if st := s.vm.DetachCurrentThread(); st != OK {
			slog.Error("jni: detach failed", "status", st)
		}
	}
	runtime.UnlockOSThread()
}

// Do runs fn with an Env for the current goroutine, attaching around the call
// when needed.
func (b *Bridge) Do(fn func(Env) error) error {
	s, err := b.Attach()
	if err != nil {
		return err
	}
	defer s.Detach()
	return fn(s.Env)
}

// CheckException reports whether a Java exception is pending. A pending
// exception is described to the JVM log (message and stack), logged here
// and cleared, leaving env usable.
func CheckException(env Env, op string) bool {
	if !env.ExceptionCheck() {
		return false
	}
	env.ExceptionDescribe()
	env.ExceptionClear()
	slog.Error("jni: exception during call", "op", op)
	return true
}

// GlobalRef owns one JNI global reference.
type GlobalRef struct {
	obj      Object
	bridge   *Bridge
	released atomic.Bool
}

// NewGlobalRef promotes obj to a global reference owned by the result.
func (b *Bridge) NewGlobalRef(env Env, obj Object) (*GlobalRef, error) {
	if obj == 0 {
		return nil, errors.New("jni: null object")
	}
	g := env.NewGlobalRef(obj)
	if CheckException(env, "NewGlobalRef") || g == 0 {
		return nil, errors.New("jni: NewGlobalRef failed")
	}
	return &GlobalRef{obj: g, bridge: b}, nil
}

func (r *GlobalRef) Object() Object { return r.obj }

// Released reports whether Release has run.
func (r *GlobalRef) Released() bool { return r.released.Load() }

// Release deletes the global reference. Only the first call has an effect.
func (r *GlobalRef) Release() {
	if r == nil {
		return
	}
	if !r.released.CompareAndSwap(false, true) {
		slog.Error("jni: global reference released twice", "ref", r.obj)
		return
	}
	err := r.bridge.Do(func(env Env) error {
		env.DeleteGlobalRef(r.obj)
		return nil
	})
	if err != nil {
		slog.Error("jni: global reference leaked", "ref", r.obj, "err", err)
	}
}

// Method is a resolved instance method taking one int argument.
type Method struct {
	ID      MethodID
	Name    string
	Boolean bool // returns jboolean, otherwise void
}

// ResolveMethod looks up class.name(sig). Only "(I)Z" and "(I)V" shapes are
// supported.
func ResolveMethod(env Env, class, name, sig string) (Method, error) {
	if sig != "(I)Z" && sig != "(I)V" {
		return Method{}, fmt.Errorf("jni: unsupported signature %q", sig)
	}
	boolean := strings.HasSuffix(sig, "Z")

	cls := env.FindClass(class)
	if CheckException(env, "FindClass") || cls == 0 {
		return Method{}, fmt.Errorf("%w: class %s", ErrNoMethod, class)
	}
	defer env.DeleteLocalRef(cls)

	id := env.GetMethodID(cls, name, sig)
	if CheckException(env, "GetMethodID") || id == 0 {
		return Method{}, fmt.Errorf("%w: %s.%s%s", ErrNoMethod, class, name, sig)
	}
	return Method{ID: id, Name: name, Boolean: boolean}, nil
}

// Call invokes m on obj with arg. A void method counts as accepted. Any
// exception is observed and cleared before returning.
func (m Method) Call(env Env, obj Object, arg int32) (bool, error) {
	if m.ID == 0 {
		return false, ErrNoMethod
	}
	ok := true
	if m.Boolean {
		ok = env.CallBooleanMethod(obj, m.ID, arg)
	} else {
		env.CallVoidMethod(obj, m.ID, arg)
	}
	if CheckException(env, m.Name) {
		return false, ErrException
	}
	return ok, nil
}
