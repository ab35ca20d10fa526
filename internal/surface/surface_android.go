//go:build android

package surface

/*
#cgo LDFLAGS: -landroid
#include <jni.h>
#include <android/surface_texture.h>
#include <android/surface_texture_jni.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"ucamera/internal/jni"
)

type nativeTexture struct {
	mu sync.Mutex
	p  *C.ASurfaceTexture
}

// Open binds obj (an android.graphics.SurfaceTexture) through the NDK.
func Open(env jni.Env, obj jni.Object) (Texture, error) {
	raw, ok := env.(interface{ Pointer() unsafe.Pointer })
	if !ok {
		return nil, errors.New("surface: env has no native pointer")
	}
	p := C.ASurfaceTexture_fromSurfaceTexture((*C.JNIEnv)(raw.Pointer()), C.jobject(unsafe.Pointer(uintptr(obj))))
	if jni.CheckException(env, "ASurfaceTexture_fromSurfaceTexture") || p == nil {
		return nil, errors.New("surface: ASurfaceTexture_fromSurfaceTexture failed")
	}
	return &nativeTexture{p: p}, nil
}

func (t *nativeTexture) UpdateTexImage() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.p == nil {
		return ErrReleased
	}
	if rc := C.ASurfaceTexture_updateTexImage(t.p); rc != 0 {
		return fmt.Errorf("surface: updateTexImage: %d", int(rc))
	}
	return nil
}

func (t *nativeTexture) TransformMatrix() mgl32.Mat4 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.p == nil {
		return mgl32.Ident4()
	}
	var m [16]C.float
	C.ASurfaceTexture_getTransformMatrix(t.p, &m[0])
	var out mgl32.Mat4
	for i := range out {
		out[i] = float32(m[i])
	}
	return out
}

func (t *nativeTexture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.p == nil {
		return
	}
	C.ASurfaceTexture_release(t.p)
	t.p = nil
}
