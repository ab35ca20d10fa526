//go:build android

package jni

/*
#include <jni.h>
#include <stdlib.h>

static jint vm_get_env(JavaVM* vm, JNIEnv** env) {
	return (*vm)->GetEnv(vm, (void**)env, JNI_VERSION_1_6);
}
static jint vm_attach(JavaVM* vm, JNIEnv** env) {
	return (*vm)->AttachCurrentThread(vm, env, NULL);
}
static jint vm_detach(JavaVM* vm) {
	return (*vm)->DetachCurrentThread(vm);
}
static jobject env_new_global(JNIEnv* env, jobject o) {
	return (*env)->NewGlobalRef(env, o);
}
static void env_delete_global(JNIEnv* env, jobject o) {
	(*env)->DeleteGlobalRef(env, o);
}
static void env_delete_local(JNIEnv* env, jobject o) {
	(*env)->DeleteLocalRef(env, o);
}
static jclass env_find_class(JNIEnv* env, const char* name) {
	return (*env)->FindClass(env, name);
}
static jmethodID env_get_method(JNIEnv* env, jclass cls, const char* name, const char* sig) {
	return (*env)->GetMethodID(env, cls, name, sig);
}
static jboolean env_call_bool_i(JNIEnv* env, jobject o, jmethodID m, jint a) {
	return (*env)->CallBooleanMethod(env, o, m, a);
}
static void env_call_void_i(JNIEnv* env, jobject o, jmethodID m, jint a) {
	(*env)->CallVoidMethod(env, o, m, a);
}
static jboolean env_exception_check(JNIEnv* env) {
	return (*env)->ExceptionCheck(env);
}
static void env_exception_describe(JNIEnv* env) {
	(*env)->ExceptionDescribe(env);
}
static void env_exception_clear(JNIEnv* env) {
	(*env)->ExceptionClear(env);
}
*/
import "C"

import "unsafe"

type javaVM struct {
	p *C.JavaVM
}

// VMFrom wraps a JavaVM* handed to JNI_OnLoad.
func VMFrom(p unsafe.Pointer) VM {
	return &javaVM{p: (*C.JavaVM)(p)}
}

func (vm *javaVM) GetEnv() (Env, Status) {
	var e *C.JNIEnv
	st := Status(C.vm_get_env(vm.p, &e))
	if st != OK {
		return nil, st
	}
	return &jniEnv{p: e}, OK
}

func (vm *javaVM) AttachCurrentThread() (Env, Status) {
	var e *C.JNIEnv
	st := Status(C.vm_attach(vm.p, &e))
	if st != OK {
		return nil, st
	}
	return &jniEnv{p: e}, OK
}

func (vm *javaVM) DetachCurrentThread() Status {
	return Status(C.vm_detach(vm.p))
}

type jniEnv struct {
	p *C.JNIEnv
}

// EnvFrom wraps a JNIEnv* received by a native method.
func EnvFrom(p unsafe.Pointer) Env {
	return &jniEnv{p: (*C.JNIEnv)(p)}
}

// Pointer returns the raw JNIEnv* for NDK calls that take one.
func (e *jniEnv) Pointer() unsafe.Pointer { return unsafe.Pointer(e.p) }

func jobj(o Object) C.jobject { return C.jobject(unsafe.Pointer(uintptr(o))) }

func (e *jniEnv) NewGlobalRef(obj Object) Object {
	return Object(uintptr(unsafe.Pointer(C.env_new_global(e.p, jobj(obj)))))
}

func (e *jniEnv) DeleteGlobalRef(obj Object) { C.env_delete_global(e.p, jobj(obj)) }

func (e *jniEnv) DeleteLocalRef(obj Object) { C.env_delete_local(e.p, jobj(obj)) }

func (e *jniEnv) FindClass(name string) Object {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return Object(uintptr(unsafe.Pointer(C.env_find_class(e.p, cname))))
}

func (e *jniEnv) GetMethodID(cls Object, name, sig string) MethodID {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	csig := C.CString(sig)
	defer C.free(unsafe.Pointer(csig))
	return MethodID(uintptr(unsafe.Pointer(C.env_get_method(e.p, C.jclass(jobj(cls)), cname, csig))))
}

func (e *jniEnv) CallBooleanMethod(obj Object, m MethodID, arg int32) bool {
	mid := C.jmethodID(unsafe.Pointer(uintptr(m)))
	return C.env_call_bool_i(e.p, jobj(obj), mid, C.jint(arg)) != C.JNI_FALSE
}

func (e *jniEnv) CallVoidMethod(obj Object, m MethodID, arg int32) {
	mid := C.jmethodID(unsafe.Pointer(uintptr(m)))
	C.env_call_void_i(e.p, jobj(obj), mid, C.jint(arg))
}

func (e *jniEnv) ExceptionCheck() bool { return C.env_exception_check(e.p) != C.JNI_FALSE }

func (e *jniEnv) ExceptionDescribe() { C.env_exception_describe(e.p) }

func (e *jniEnv) ExceptionClear() { C.env_exception_clear(e.p) }
