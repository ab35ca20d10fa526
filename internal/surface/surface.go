// Package surface pairs a native surface-texture handle with the JVM object
// that owns it.
package surface

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"ucamera/internal/jni"
)

// ErrReleased is returned by operations on a released handle.
var ErrReleased = errors.New("surface: texture released")

// Texture is a native consumer of a producer-written image stream bound to
// an external GL texture. UpdateTexImage and TransformMatrix must run on the
// thread that owns the GL context.
type Texture interface {
	UpdateTexImage() error
	TransformMatrix() mgl32.Mat4
	Release()
}

// Opener binds a native Texture to a Java SurfaceTexture object.
type Opener func(env jni.Env, obj jni.Object) (Texture, error)

// Entry is a registered surface texture: the native handle and the global
// reference keeping its Java wrapper alive. Both go away together.
type Entry struct {
	TextureID uint32

	native Texture
	java   *jni.GlobalRef

	once sync.Once
}

// NewEntry takes ownership of native and java.
func NewEntry(textureID uint32, native Texture, java *jni.GlobalRef) *Entry {
	return &Entry{TextureID: textureID, native: native, java: java}
}

// Native returns the native handle. It is only valid while the entry is
// registered.
func (e *Entry) Native() Texture { return e.native }

// Release drops the native handle first, then the Java object backing it.
func (e *Entry) Release() {
	e.once.Do(func() {
		e.native.Release()
		e.java.Release()
		slog.Debug("surface: released", "texture", e.TextureID)
	})
}
