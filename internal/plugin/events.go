package plugin

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/mobile/gl"

	"ucamera/internal/jni"
	"ucamera/internal/registry"
	"ucamera/internal/render"
	"ucamera/internal/surface"
)

// Event is a Unity render event ID.
type Event int32

const (
	EventAllocate Event = 1
	EventDestroy  Event = 2
	EventUpdate   Event = 3
	EventShutdown Event = 4
)

func (e Event) String() string {
	switch e {
	case EventAllocate:
		return "allocate"
	case EventDestroy:
		return "destroy"
	case EventUpdate:
		return "update"
	case EventShutdown:
		return "shutdown"
	}
	return "unknown"
}

// AllocateRequest asks for a camera texture bound to a Unity texture and
// hands it to the capture session registered under Timestamp.
type AllocateRequest struct {
	UnityTexture uint32
	Width        int
	Height       int
	Timestamp    int64
	Done         func(AllocateResult)
}

// AllocateResult is reported to the Unity side after ALLOCATE.
type AllocateResult struct {
	GLClean         bool // no GL error was raised
	SessionCallSent bool // the capture session callback ran without a JNI error
	SessionFound    bool
	UnityTexture    uint32
	NativeTexture   uint32 // camera texture name, 0 on failure
}

// UpdateRequest latches the newest camera frame of CameraTexture and
// converts it. A non-zero UnityTexture replaces the stream's target.
type UpdateRequest struct {
	CameraTexture uint32
	UnityTexture  uint32
	Width         int
	Height        int
	Done          func(texture uint32, ok bool)
}

// DestroyRequest releases the stream and surface texture under Texture.
type DestroyRequest struct {
	Texture uint32
	Done    func(texture uint32, ok bool)
}

// HandleEvent dispatches one render event. It runs inside the render
// loop; completion callbacks are invoked on the render thread.
func (p *Plugin) HandleEvent(ev Event, payload any) {
	if p.isClosed() {
		p.log.Warn("plugin: render event after close", "event", ev)
		p.thread.Do(func() { Reject(payload) })
		return
	}
	switch ev {
	case EventAllocate:
		req, ok := payload.(*AllocateRequest)
		if !ok || req == nil {
			p.reject(ev, payload)
			return
		}
		res := p.Allocate(*req)
		if req.Done != nil {
			p.thread.Do(func() { req.Done(res) })
		}
	case EventUpdate:
		req, ok := payload.(*UpdateRequest)
		if !ok || req == nil {
			p.reject(ev, payload)
			return
		}
		done := p.Update(*req)
		if req.Done != nil {
			p.thread.Do(func() { req.Done(req.CameraTexture, done) })
		}
	case EventDestroy:
		req, ok := payload.(*DestroyRequest)
		if !ok || req == nil {
			p.reject(ev, payload)
			return
		}
		found := p.Destroy(*req)
		if req.Done != nil {
			p.thread.Do(func() { req.Done(req.Texture, found) })
		}
	case EventShutdown:
		p.Shutdown()
	default:
		p.log.Warn("plugin: unknown render event", "id", int32(ev))
		p.thread.Do(func() { Reject(payload) })
	}
}

func (p *Plugin) reject(ev Event, payload any) {
	p.log.Error("plugin: missing or mismatched payload", "event", ev, "payload", fmt.Sprintf("%T", payload))
	p.thread.Do(func() { Reject(payload) })
}

// Reject reports failure through the completion callback of payload without
// doing any work. Payloads without a callback are ignored.
func Reject(payload any) {
	switch req := payload.(type) {
	case *AllocateRequest:
		if req != nil && req.Done != nil {
			req.Done(AllocateResult{GLClean: true, UnityTexture: req.UnityTexture})
		}
	case *UpdateRequest:
		if req != nil && req.Done != nil {
			req.Done(req.CameraTexture, false)
		}
	case *DestroyRequest:
		if req != nil && req.Done != nil {
			req.Done(req.Texture, false)
		}
	}
}

// Allocate creates a stream for the session pending under req.Timestamp
// and passes its camera texture to the session. No GL object is created
// unless the session exists.
func (p *Plugin) Allocate(req AllocateRequest) AllocateResult {
	res := AllocateResult{GLClean: true, UnityTexture: req.UnityTexture}
	if req.UnityTexture == 0 || req.Width < 1 || req.Height < 1 {
		p.log.Error("plugin: invalid allocate request", "unity_texture", req.UnityTexture, "width", req.Width, "height", req.Height)
		return res
	}
	if !p.sessions.Contains(req.Timestamp) {
		p.log.Warn("plugin: no capture session", "timestamp", req.Timestamp)
		return res
	}
	res.SessionFound = true

	stream, err := render.NewStream(p.res, gl.Texture{Value: req.UnityTexture}, req.Width, req.Height)
	if err != nil {
		p.log.Error("plugin: cannot create stream", "unity_texture", req.UnityTexture, "err", err)
		res.GLClean = false
		return res
	}

	session, ok := p.sessions.Take(req.Timestamp)
	if !ok {
		// Deregistered while the stream was being built.
		stream.Release()
		res.SessionFound = false
		return res
	}
	defer session.Release()

	src := stream.Source().Value
	p.streams.Register(src, stream)

	m := p.method()
	var accepted bool
	err = p.bridge.Do(func(env jni.Env) error {
		var err error
		accepted, err = m.Call(env, session.Object(), int32(src))
		return err
	})
	res.SessionCallSent = err == nil
	if err != nil || !accepted {
		p.log.Error("plugin: capture session refused texture", "texture", src, "timestamp", req.Timestamp, "err", err)
		if s, ok := p.streams.Take(src); ok {
			s.Release()
		}
		// The session may have registered a surface texture for src before
		// refusing it.
		if e, ok := p.surfaces.Take(src); ok {
			e.Release()
		}
		return res
	}

	res.NativeTexture = src
	p.log.Info("plugin: stream allocated", "texture", src, "unity_texture", req.UnityTexture, "timestamp", req.Timestamp)
	return res
}

// Update latches the newest frame of req.CameraTexture and renders it.
func (p *Plugin) Update(req UpdateRequest) bool {
	if req.CameraTexture == 0 {
		p.log.Error("plugin: update without camera texture")
		return false
	}
	if req.UnityTexture != 0 && (req.Width < 1 || req.Height < 1) {
		p.log.Error("plugin: update into empty target", "texture", req.CameraTexture,
			"unity_texture", req.UnityTexture, "width", req.Width, "height", req.Height)
		return false
	}
	err := p.surfaces.With(req.CameraTexture, func(e *surface.Entry) error {
		var (
			xf        mgl32.Mat4
			updateErr error
		)
		p.thread.Do(func() {
			if updateErr = e.Native().UpdateTexImage(); updateErr == nil {
				xf = e.Native().TransformMatrix()
			}
		})
		if updateErr != nil {
			return updateErr
		}

		err := p.streams.With(req.CameraTexture, func(s *render.Stream) error {
			if req.UnityTexture != 0 {
				s.Retarget(gl.Texture{Value: req.UnityTexture}, req.Width, req.Height)
			}
			return s.Render(xf)
		})
		if errors.Is(err, registry.ErrNotFound) {
			return p.renderShared(req, xf)
		}
		return err
	})
	if err != nil {
		p.log.Error("plugin: update failed", "texture", req.CameraTexture, "err", err)
		return false
	}
	return true
}

// renderShared draws a surface texture that has no stream of its own,
// through the shared framebuffer.
func (p *Plugin) renderShared(req UpdateRequest, xf mgl32.Mat4) error {
	if req.UnityTexture == 0 {
		return render.ErrInvalidDrawInfo
	}
	if err := p.acquireShared(); err != nil {
		return err
	}
	return p.res.RenderFrame(render.DrawInfo{
		Source:      gl.Texture{Value: req.CameraTexture},
		Target:      gl.Texture{Value: req.UnityTexture},
		Framebuffer: p.res.SharedFramebuffer(),
		Width:       req.Width,
		Height:      req.Height,
		Transform:   xf,
	})
}

func (p *Plugin) acquireShared() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shared {
		return nil
	}
	if err := p.res.Acquire(); err != nil {
		return err
	}
	p.shared = true
	return nil
}

// Destroy releases the stream registered under req.Texture and any surface
// texture with the same ID. It reports whether a stream existed.
func (p *Plugin) Destroy(req DestroyRequest) bool {
	s, found := p.streams.Take(req.Texture)
	if found {
		s.Release()
	} else {
		p.log.Warn("plugin: destroy of unknown stream", "texture", req.Texture)
	}
	if e, ok := p.surfaces.Take(req.Texture); ok {
		e.Release()
	}
	return found
}

// Shutdown deletes every stream and the shared GL resources. Surface
// textures and pending sessions stay registered until Close.
func (p *Plugin) Shutdown() {
	streams := p.streams.Drain()
	for _, s := range streams {
		s.Release()
	}

	p.mu.Lock()
	shared := p.shared
	p.shared = false
	p.mu.Unlock()
	if shared {
		p.res.Release()
	}
	p.log.Info("plugin: GL resources released", "streams", len(streams), "refs", p.res.Refs())
}
