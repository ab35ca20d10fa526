// Package plugin is the camera texture bridge: it owns the session,
// surface and stream registries and the GL resources for one load of the
// native library.
//
// JNI entry points (Register*, Deregister*) run on JVM threads. Render
// events (HandleEvent) run inside renderthread.Loop.Run, so their GL calls
// land on Unity's render thread.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"ucamera/internal/config"
	"ucamera/internal/jni"
	"ucamera/internal/registry"
	"ucamera/internal/render"
	"ucamera/internal/surface"
)

// Thread runs a function where the GL context is current and waits for it.
// *renderthread.Loop satisfies it.
type Thread interface {
	Do(fn func())
}

// Deps is everything a Plugin needs from its host.
type Deps struct {
	Config  config.Config
	Bridge  *jni.Bridge
	GL      render.GL
	Dialect render.Dialect
	Open    surface.Opener
	Thread  Thread
}

// Plugin is the state of one loaded library instance.
type Plugin struct {
	ID uuid.UUID

	cfg    config.Config
	bridge *jni.Bridge
	open   surface.Opener
	thread Thread
	res    *render.Resources
	log    *slog.Logger

	sessions *registry.Store[int64, *jni.GlobalRef]
	surfaces *registry.Store[uint32, *surface.Entry]
	streams  *registry.Store[uint32, *render.Stream]

	mu       sync.Mutex
	callback jni.Method
	shared   bool // holding a Resources reference for shared-framebuffer draws
	closed   bool
}

// New builds a plugin. GL resources are created lazily on the render thread.
func New(d Deps) (*Plugin, error) {
	if d.Bridge == nil || d.GL == nil || d.Open == nil || d.Thread == nil {
		return nil, errors.New("plugin: incomplete dependencies")
	}
	opts, err := render.OptionsFromConfig(d.Config, d.Dialect)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	p := &Plugin{
		ID:       id,
		cfg:      d.Config,
		bridge:   d.Bridge,
		open:     d.Open,
		thread:   d.Thread,
		res:      render.NewResources(d.GL, opts),
		log:      slog.With("plugin", id.String()),
		sessions: registry.New[int64, *jni.GlobalRef]("sessions"),
		surfaces: registry.New[uint32, *surface.Entry]("surfaces"),
		streams:  registry.New[uint32, *render.Stream]("streams"),
	}
	p.log.Info("plugin: created", "conversion", d.Config.Conversion, "range", d.Config.ColorRange, "geometry", d.Config.Geometry)
	return p, nil
}

// ResolveCallback looks up the method ALLOCATE calls on a capture session.
// env must belong to a thread that can see the application class loader.
func (p *Plugin) ResolveCallback(env jni.Env) error {
	m, err := jni.ResolveMethod(env, p.cfg.SessionClass, p.cfg.CallbackMethod, p.cfg.CallbackSignature)
	if err != nil {
		return fmt.Errorf("plugin: resolve callback: %w", err)
	}
	p.mu.Lock()
	p.callback = m
	p.mu.Unlock()
	p.log.Info("plugin: callback resolved", "class", p.cfg.SessionClass, "method", m.Name)
	return nil
}

func (p *Plugin) method() jni.Method {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callback
}

func (p *Plugin) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// RegisterCaptureSession keeps session alive until an ALLOCATE with the same
// timestamp hands it a texture. A session already pending under timestamp
// is replaced and released.
func (p *Plugin) RegisterCaptureSession(env jni.Env, session jni.Object, timestamp int64) bool {
	if p.isClosed() {
		p.log.Warn("plugin: register after close", "timestamp", timestamp)
		return false
	}
	ref, err := p.bridge.NewGlobalRef(env, session)
	if err != nil {
		p.log.Error("plugin: cannot retain capture session", "timestamp", timestamp, "err", err)
		return false
	}
	p.sessions.Register(timestamp, ref)
	p.log.Debug("plugin: capture session pending", "timestamp", timestamp)
	return true
}

// DeregisterCaptureSession drops a pending session that will never be
// allocated.
func (p *Plugin) DeregisterCaptureSession(timestamp int64) bool {
	return p.sessions.Deregister(timestamp)
}

// RegisterSurfaceTexture binds obj for per-frame updates of textureID.
func (p *Plugin) RegisterSurfaceTexture(env jni.Env, obj jni.Object, textureID int32) bool {
	if p.isClosed() {
		p.log.Warn("plugin: register after close", "texture", textureID)
		return false
	}
	if textureID <= 0 {
		p.log.Error("plugin: invalid surface texture id", "texture", textureID)
		return false
	}
	native, err := p.open(env, obj)
	if err != nil {
		p.log.Error("plugin: cannot open surface texture", "texture", textureID, "err", err)
		return false
	}
	ref, err := p.bridge.NewGlobalRef(env, obj)
	if err != nil {
		native.Release()
		p.log.Error("plugin: cannot retain surface texture", "texture", textureID, "err", err)
		return false
	}
	p.surfaces.Register(uint32(textureID), surface.NewEntry(uint32(textureID), native, ref))
	p.log.Debug("plugin: surface texture registered", "texture", textureID)
	return true
}

// DeregisterSurfaceTexture stops updates for textureID and releases it.
func (p *Plugin) DeregisterSurfaceTexture(textureID int32) bool {
	if textureID <= 0 {
		p.log.Warn("plugin: deregister of invalid surface texture id", "texture", textureID)
		return false
	}
	return p.surfaces.Deregister(uint32(textureID))
}

// Close releases every JVM reference. Streams still registered are
// abandoned: GL objects can only be deleted on the render thread, which is
// gone by the time the library unloads. Close is safe to call twice.
func (p *Plugin) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	shared := p.shared
	p.shared = false
	p.mu.Unlock()

	sessions := p.sessions.ReleaseAll()
	surfaces := p.surfaces.ReleaseAll()
	streams := p.streams.Drain()
	for _, s := range streams {
		s.Abandon()
	}
	if shared || len(streams) > 0 {
		p.log.Warn("plugin: GL resources abandoned at unload", "streams", len(streams))
	}
	p.log.Info("plugin: closed", "sessions", sessions, "surfaces", surfaces)
}
