package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/mobile/gl"
)

var (
	// ErrInvalidTarget is returned for a target with no pixels.
	ErrInvalidTarget = errors.New("render: invalid target size")
	// ErrInvalidDrawInfo is returned when a draw names a zero GL object.
	ErrInvalidDrawInfo = errors.New("render: zero texture or framebuffer")
	// ErrGL is returned when the driver reported errors during a draw.
	ErrGL = errors.New("render: GL error during draw")
)

// FramebufferError reports an incomplete framebuffer.
type FramebufferError struct {
	Status gl.Enum
}

func (e *FramebufferError) Error() string {
	return fmt.Sprintf("render: framebuffer incomplete (status %s)", hexEnum(e.Status))
}

// DrawInfo describes one conversion: sample Source, write Target through
// Framebuffer.
type DrawInfo struct {
	Source      gl.Texture
	Target      gl.Texture
	Framebuffer gl.Framebuffer
	Width       int
	Height      int
	Transform   mgl32.Mat4
}

// RenderFrame draws the camera texture into the target texture, converting
// YUV to RGB. On return the default framebuffer, program, texture and
// vertex array are bound again, and no GL error is left pending.
func (r *Resources) RenderFrame(d DrawInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready() {
		return ErrNotReady
	}
	if d.Source.Value == 0 || d.Target.Value == 0 || d.Framebuffer.Value == 0 {
		return ErrInvalidDrawInfo
	}
	if d.Width < 1 || d.Height < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTarget, d.Width, d.Height)
	}

	g := r.g
	drainErrors(g, "render:enter")

	g.BindFramebuffer(gl.FRAMEBUFFER, d.Framebuffer)
	g.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, d.Target, 0)
	if st := g.CheckFramebufferStatus(gl.FRAMEBUFFER); st != gl.FRAMEBUFFER_COMPLETE {
		g.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
		drainErrors(g, "render:framebuffer")
		return &FramebufferError{Status: st}
	}

	xf := d.Transform
	if xf == (mgl32.Mat4{}) {
		xf = mgl32.Ident4()
	}

	g.Viewport(0, 0, d.Width, d.Height)
	g.UseProgram(r.program)
	g.UniformMatrix4fv(r.uXform, xf[:])
	g.ActiveTexture(gl.TEXTURE0)
	g.BindTexture(r.opts.SourceTarget(), d.Source)
	g.Uniform1i(r.uTexture, 0)
	g.BindVertexArray(r.vao)

	switch r.opts.Geometry {
	case Indexed:
		g.DrawElements(gl.TRIANGLES, len(quadIndices), gl.UNSIGNED_SHORT, 0)
	default:
		g.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	}

	g.BindVertexArray(gl.VertexArray{})
	g.BindTexture(r.opts.SourceTarget(), gl.Texture{})
	g.UseProgram(gl.Program{})
	g.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})

	// GetError is synchronous, so this also waits for the draw to be
	// submitted before Unity samples the target.
	if drainErrors(g, "render") {
		return ErrGL
	}
	return nil
}
