//go:build android

package main

/*
#include <jni.h>
#include "ucamera.h"
*/
import "C"

import (
	"log/slog"
	"sync/atomic"
	"unsafe"

	"golang.org/x/mobile/gl"

	"ucamera/internal/config"
	"ucamera/internal/jni"
	"ucamera/internal/logging"
	"ucamera/internal/plugin"
	"ucamera/internal/render"
	"ucamera/internal/renderthread"
	"ucamera/internal/surface"
)

type host struct {
	p    *plugin.Plugin
	loop *renderthread.Loop
}

var active atomic.Pointer[host]

func recoverExport(name string) {
	if r := recover(); r != nil {
		slog.Error("ucamera: panic in export", "func", name, "panic", r)
	}
}

func load(vm jni.VM) error {
	cfg := config.FromEnv()
	level, _ := cfg.Level()
	logging.Setup(level)

	glctx, worker := gl.NewContext()
	loop := renderthread.New(worker, cfg.EnforceRenderThread)
	p, err := plugin.New(plugin.Deps{
		Config:  cfg,
		Bridge:  jni.NewBridge(vm),
		GL:      glctx,
		Dialect: render.GLES3,
		Open:    surface.Open,
		Thread:  loop,
	})
	if err != nil {
		return err
	}

	// Resolve on the loading thread: it sees the application class loader.
	err = jni.NewBridge(vm).Do(p.ResolveCallback)
	if err != nil {
		slog.Error("ucamera: capture sessions cannot be started", "err", err)
	}

	if old := active.Swap(&host{p: p, loop: loop}); old != nil {
		old.p.Close()
	}
	return nil
}

func unload() {
	if h := active.Swap(nil); h != nil {
		h.p.Close()
	}
}

//export JNI_OnLoad
func JNI_OnLoad(vm *C.JavaVM, reserved unsafe.Pointer) C.jint {
	defer recoverExport("JNI_OnLoad")
	if err := load(jni.VMFrom(unsafe.Pointer(vm))); err != nil {
		slog.Error("ucamera: load failed", "err", err)
		return C.JNI_ERR
	}
	return C.JNI_VERSION_1_6
}

//export JNI_OnUnload
func JNI_OnUnload(vm *C.JavaVM, reserved unsafe.Pointer) {
	defer recoverExport("JNI_OnUnload")
	unload()
}

//export UnityPluginLoad
func UnityPluginLoad(interfaces unsafe.Pointer) {
	defer recoverExport("UnityPluginLoad")
	if h := active.Load(); h != nil {
		slog.Info("ucamera: unity plugin loaded", "plugin", h.p.ID)
	}
}

//export UnityPluginUnload
func UnityPluginUnload() {
	defer recoverExport("UnityPluginUnload")
	unload()
}

//export GetRenderEventFunction
func GetRenderEventFunction() unsafe.Pointer {
	return renderEventFunc()
}

//export OnRenderEvent
func OnRenderEvent(eventID C.int, data unsafe.Pointer) {
	defer recoverExport("OnRenderEvent")
	ev := plugin.Event(eventID)
	payload := decode(ev, data)
	h := active.Load()
	if h == nil {
		slog.Warn("ucamera: render event before load", "event", ev)
		plugin.Reject(payload)
		return
	}
	if err := h.loop.Run(func() { h.p.HandleEvent(ev, payload) }); err != nil {
		slog.Error("ucamera: render event dropped", "event", ev, "err", err)
		plugin.Reject(payload)
	}
}

func current() *plugin.Plugin {
	if h := active.Load(); h != nil {
		return h.p
	}
	slog.Warn("ucamera: JNI call before load")
	return nil
}

func jbool(b bool) C.jboolean {
	if b {
		return C.JNI_TRUE
	}
	return C.JNI_FALSE
}

func object(o C.jobject) jni.Object { return jni.Object(uintptr(unsafe.Pointer(o))) }

//export Java_com_uralstech_ucamera_STCaptureSessionWrapper_registerCaptureSessionNative
func Java_com_uralstech_ucamera_STCaptureSessionWrapper_registerCaptureSessionNative(env *C.JNIEnv, thiz C.jobject, timestamp C.jlong) (ok C.jboolean) {
	defer recoverExport("registerCaptureSessionNative")
	ok = C.JNI_FALSE
	if p := current(); p != nil {
		ok = jbool(p.RegisterCaptureSession(jni.EnvFrom(unsafe.Pointer(env)), object(thiz), int64(timestamp)))
	}
	return ok
}

//export Java_com_uralstech_ucamera_STCaptureSessionWrapper_tryDeregisterCaptureSessionNative
func Java_com_uralstech_ucamera_STCaptureSessionWrapper_tryDeregisterCaptureSessionNative(env *C.JNIEnv, thiz C.jobject, timestamp C.jlong) {
	defer recoverExport("tryDeregisterCaptureSessionNative")
	if p := current(); p != nil {
		p.DeregisterCaptureSession(int64(timestamp))
	}
}

//export Java_com_uralstech_ucamera_STCaptureSessionWrapper_registerSurfaceTextureForUpdates
func Java_com_uralstech_ucamera_STCaptureSessionWrapper_registerSurfaceTextureForUpdates(env *C.JNIEnv, thiz C.jobject, surfaceTexture C.jobject, textureID C.jint) (ok C.jboolean) {
	defer recoverExport("registerSurfaceTextureForUpdates")
	ok = C.JNI_FALSE
	if p := current(); p != nil {
		ok = jbool(p.RegisterSurfaceTexture(jni.EnvFrom(unsafe.Pointer(env)), object(surfaceTexture), int32(textureID)))
	}
	return ok
}

//export Java_com_uralstech_ucamera_STCaptureSessionWrapper_deregisterSurfaceTextureForUpdates
func Java_com_uralstech_ucamera_STCaptureSessionWrapper_deregisterSurfaceTextureForUpdates(env *C.JNIEnv, thiz C.jobject, textureID C.jint) {
	defer recoverExport("deregisterSurfaceTextureForUpdates")
	if p := current(); p != nil {
		p.DeregisterSurfaceTexture(int32(textureID))
	}
}
