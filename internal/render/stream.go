package render

import (
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/mobile/gl"
)

// Stream is one allocated conversion path: a camera texture the producer
// writes into, a framebuffer, and the Unity texture it renders to. A stream
// holds one reference on its Resources.
type Stream struct {
	res *Resources

	mu     sync.Mutex
	source gl.Texture
	fbo    gl.Framebuffer
	target gl.Texture
	width  int
	height int
	done   bool
}

// NewStream builds the camera texture and framebuffer for a Unity texture of
// the given size. It must run on the GL thread.
func NewStream(res *Resources, target gl.Texture, width, height int) (*Stream, error) {
	if err := res.Acquire(); err != nil {
		return nil, err
	}
	g := res.g
	src := g.CreateTexture()
	st := res.opts.SourceTarget()
	g.BindTexture(st, src)
	g.TexParameteri(st, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	g.TexParameteri(st, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	g.TexParameteri(st, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	g.TexParameteri(st, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	g.BindTexture(st, gl.Texture{})
	fbo := g.CreateFramebuffer()

	if drainErrors(g, "stream") || src.Value == 0 || fbo.Value == 0 {
		if fbo.Value != 0 {
			g.DeleteFramebuffer(fbo)
		}
		if src.Value != 0 {
			g.DeleteTexture(src)
		}
		res.Release()
		return nil, ErrGL
	}
	slog.Debug("render: stream created", "source", src.Value, "target", target.Value)
	return &Stream{
		res:    res,
		source: src,
		fbo:    fbo,
		target: target,
		width:  width,
		height: height,
	}, nil
}

// Source is the camera texture name handed to the producer.
func (s *Stream) Source() gl.Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Info returns the draw parameters with the given transform applied.
func (s *Stream) Info(xf mgl32.Mat4) DrawInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DrawInfo{
		Source:      s.source,
		Target:      s.target,
		Framebuffer: s.fbo,
		Width:       s.width,
		Height:      s.height,
		Transform:   xf,
	}
}

// Retarget points the stream at a different Unity texture.
func (s *Stream) Retarget(target gl.Texture, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = target
	s.width, s.height = width, height
}

// Render converts the current camera frame into the target texture.
func (s *Stream) Render(xf mgl32.Mat4) error {
	return s.res.RenderFrame(s.Info(xf))
}

// Release deletes the stream's GL objects and drops its resources
// reference. It must run on the GL thread. Later calls do nothing.
func (s *Stream) Release() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	src, fbo := s.source, s.fbo
	s.source, s.fbo = gl.Texture{}, gl.Framebuffer{}
	s.mu.Unlock()

	g := s.res.g
	g.DeleteFramebuffer(fbo)
	g.DeleteTexture(src)
	drainErrors(g, "stream:release")
	s.res.Release()
	slog.Debug("render: stream released", "source", src.Value)
}

// Abandon forgets the stream without touching GL, for when the context is
// already gone.
func (s *Stream) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	slog.Warn("render: abandoning stream without GL context", "source", s.source.Value, "target", s.target.Value)
}
