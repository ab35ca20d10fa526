// Package jnitest provides an in-memory JavaVM for tests.
package jnitest

import (
	"sync"

	"ucamera/internal/jni"
)

// Call records one Java method invocation.
type Call struct {
	Obj    jni.Object
	Method jni.MethodID
	Arg    int32
}

// VM is a fake JavaVM with a single simulated thread.
type VM struct {
	mu sync.Mutex

	Env *Env

	attached     bool
	AttachStatus jni.Status // returned by AttachCurrentThread when not OK
	Attaches     int
	Detaches     int
}

// NewVM returns a VM whose current thread is attached when attached is true.
func NewVM(attached bool) *VM {
	return &VM{Env: NewEnv(), attached: attached}
}

func (vm *VM) Attached() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.attached
}

func (vm *VM) GetEnv() (jni.Env, jni.Status) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.attached {
		return nil, jni.ErrDetached
	}
	return vm.Env, jni.OK
}

func (vm *VM) AttachCurrentThread() (jni.Env, jni.Status) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.AttachStatus != jni.OK {
		return nil, vm.AttachStatus
	}
	vm.attached = true
	vm.Attaches++
	return vm.Env, jni.OK
}

func (vm *VM) DetachCurrentThread() jni.Status {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.attached {
		return jni.ErrDetached
	}
	vm.attached = false
	vm.Detaches++
	return jni.OK
}

// Env is a fake JNIEnv tracking global references and method calls.
type Env struct {
	mu sync.Mutex

	next    jni.Object
	globals map[jni.Object]bool
	locals  map[jni.Object]bool

	// Classes maps class names to their method tables (name+sig -> id).
	Classes map[string]map[string]jni.MethodID

	Calls         []Call
	Result        bool // value returned by CallBooleanMethod
	ThrowOnCall   bool // leave an exception pending after each call
	OnCall        func(Call)
	pending       bool
	DoubleDeletes int
	Described     int
	Cleared       int
}

func NewEnv() *Env {
	return &Env{
		next:    0x1000,
		globals: make(map[jni.Object]bool),
		locals:  make(map[jni.Object]bool),
		Classes: make(map[string]map[string]jni.MethodID),
		Result:  true,
	}
}

// Local hands out a fresh local reference, standing in for a jobject passed
// to a native method.
func (e *Env) Local() jni.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.locals[e.next] = true
	return e.next
}

// LiveGlobals counts global references not yet deleted.
func (e *Env) LiveGlobals() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.globals)
}

// IsLive reports whether obj is an undeleted global reference.
func (e *Env) IsLive(obj jni.Object) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globals[obj]
}

// CallCount returns the number of Java calls so far.
func (e *Env) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}

// Throw leaves an exception pending, as a failed JNI call would.
func (e *Env) Throw() {
	e.mu.Lock()
	e.pending = true
	e.mu.Unlock()
}

func (e *Env) NewGlobalRef(obj jni.Object) jni.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	if obj == 0 {
		return 0
	}
	e.next++
	e.globals[e.next] = true
	return e.next
}

func (e *Env) DeleteGlobalRef(obj jni.Object) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.globals[obj] {
		e.DoubleDeletes++
		return
	}
	delete(e.globals, obj)
}

func (e *Env) DeleteLocalRef(obj jni.Object) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.locals, obj)
}

func (e *Env) FindClass(name string) jni.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.Classes[name]; !ok {
		e.pending = true
		return 0
	}
	e.next++
	e.locals[e.next] = true
	return e.next
}

func (e *Env) GetMethodID(cls jni.Object, name, sig string) jni.MethodID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.locals[cls] {
		e.pending = true
		return 0
	}
	for _, methods := range e.Classes {
		if id, ok := methods[name+sig]; ok {
			return id
		}
	}
	e.pending = true
	return 0
}

func (e *Env) call(obj jni.Object, m jni.MethodID, arg int32) {
	c := Call{Obj: obj, Method: m, Arg: arg}
	e.mu.Lock()
	e.Calls = append(e.Calls, c)
	hook := e.OnCall
	if e.ThrowOnCall {
		e.pending = true
	}
	e.mu.Unlock()
	if hook != nil {
		hook(c)
	}
}

func (e *Env) CallBooleanMethod(obj jni.Object, m jni.MethodID, arg int32) bool {
	e.call(obj, m, arg)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Result && !e.pending
}

func (e *Env) CallVoidMethod(obj jni.Object, m jni.MethodID, arg int32) {
	e.call(obj, m, arg)
}

func (e *Env) ExceptionCheck() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

func (e *Env) ExceptionDescribe() {
	e.mu.Lock()
	e.Described++
	e.mu.Unlock()
}

func (e *Env) ExceptionClear() {
	e.mu.Lock()
	e.pending = false
	e.Cleared++
	e.mu.Unlock()
}

// Define registers class with one method so ResolveMethod can find it.
func (e *Env) Define(class, name, sig string, id jni.MethodID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Classes[class] == nil {
		e.Classes[class] = make(map[string]jni.MethodID)
	}
	e.Classes[class][name+sig] = id
}
