//go:build android

package main

/*
#include "ucamera.h"

extern void OnRenderEvent(int eventID, void* data);

static ucamera_render_event render_event_func(void) {
	return OnRenderEvent;
}

static void call_allocate_done(ucamera_allocate_done f, uint8_t glClean, uint8_t callSent, uint8_t found, GLuint unity, GLuint native) {
	if (f) f(glClean, callSent, found, unity, native);
}

static void call_texture_done(ucamera_texture_done f, GLuint texture, uint8_t ok) {
	if (f) f(texture, ok);
}
*/
import "C"

import (
	"unsafe"

	"ucamera/internal/plugin"
)

func flag(b bool) C.uint8_t {
	if b {
		return 1
	}
	return 0
}

// decode copies the payload Unity passed with ev. The C memory is only
// read here; completion goes through the copied function pointer.
func decode(ev plugin.Event, data unsafe.Pointer) any {
	if data == nil {
		return nil
	}
	switch ev {
	case plugin.EventAllocate:
		p := (*C.AllocatePayload)(data)
		done := p.done
		return &plugin.AllocateRequest{
			UnityTexture: uint32(p.unityTexture),
			Width:        int(p.width),
			Height:       int(p.height),
			Timestamp:    int64(p.timestamp),
			Done: func(r plugin.AllocateResult) {
				C.call_allocate_done(done, flag(r.GLClean), flag(r.SessionCallSent), flag(r.SessionFound),
					C.GLuint(r.UnityTexture), C.GLuint(r.NativeTexture))
			},
		}
	case plugin.EventUpdate:
		p := (*C.UpdatePayload)(data)
		done := p.done
		return &plugin.UpdateRequest{
			CameraTexture: uint32(p.cameraTexture),
			UnityTexture:  uint32(p.unityTexture),
			Width:         int(p.width),
			Height:        int(p.height),
			Done: func(texture uint32, ok bool) {
				C.call_texture_done(done, C.GLuint(texture), flag(ok))
			},
		}
	case plugin.EventDestroy:
		p := (*C.DestroyPayload)(data)
		done := p.done
		return &plugin.DestroyRequest{
			Texture: uint32(p.texture),
			Done: func(texture uint32, ok bool) {
				C.call_texture_done(done, C.GLuint(texture), flag(ok))
			},
		}
	}
	return nil
}

func renderEventFunc() unsafe.Pointer {
	return unsafe.Pointer(C.render_event_func())
}
