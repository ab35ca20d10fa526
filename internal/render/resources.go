package render

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/mobile/exp/f32"
	"golang.org/x/mobile/gl"
)

// ErrNotReady is returned when drawing without compiled resources.
var ErrNotReady = errors.New("render: resources not ready")

// Strip vertices: x, y, u, v.
var stripVertices = []float32{
	-1, 1, 0, 1,
	-1, -1, 0, 0,
	1, 1, 1, 1,
	1, -1, 1, 0,
}

// Indexed vertices: top right, bottom right, bottom left, top left.
var indexedVertices = []float32{
	1, 1, 1, 1,
	1, -1, 1, 0,
	-1, -1, 0, 0,
	-1, 1, 0, 1,
}

var quadIndices = []uint16{0, 1, 3, 1, 2, 3}

const vertexStride = 4 * 4

// Resources are the GL objects every conversion shares: the program, the
// quad and a spare framebuffer. They are reference counted; the first
// Acquire builds them and the last Release deletes them. All methods must
// run on the GL thread.
type Resources struct {
	g    GL
	opts Options

	mu   sync.Mutex
	refs int

	program   gl.Program
	uTexture  gl.Uniform
	uXform    gl.Uniform
	vao       gl.VertexArray
	vbo       gl.Buffer
	ebo       gl.Buffer
	sharedFBO gl.Framebuffer
}

// NewResources returns unbuilt resources for opts.
func NewResources(g GL, opts Options) *Resources {
	return &Resources{g: g, opts: opts}
}

func (r *Resources) Options() Options { return r.opts }

// Acquire takes a reference, building the resources on the first one. A
// failed build leaves nothing allocated and no reference taken.
func (r *Resources) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 {
		if err := r.setup(); err != nil {
			r.teardown()
			return err
		}
	}
	r.refs++
	return nil
}

// Release drops a reference, deleting everything on the last one.
func (r *Resources) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 {
		slog.Warn("render: release of unreferenced resources")
		return
	}
	r.refs--
	if r.refs == 0 {
		r.teardown()
	}
}

func (r *Resources) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// Ready reports whether the program and quad exist.
func (r *Resources) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready()
}

func (r *Resources) ready() bool {
	return r.program.Value != 0 && r.vao.Value != 0
}

// SharedFramebuffer is a framebuffer for draws with no dedicated one. It is
// zero when the resources are not built.
func (r *Resources) SharedFramebuffer() gl.Framebuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sharedFBO
}

func (r *Resources) setup() error {
	drainErrors(r.g, "setup:enter")

	vert, frag, err := Sources(r.opts)
	if err != nil {
		return err
	}
	if r.program.Value == 0 {
		prog, err := linkProgram(r.g, vert, frag)
		if err != nil {
			return err
		}
		r.program = prog
		r.uTexture = r.g.GetUniformLocation(prog, uniformTexture)
		r.uXform = r.g.GetUniformLocation(prog, uniformTransform)
	}
	if r.vao.Value == 0 {
		r.setupGeometry()
	}
	if r.sharedFBO.Value == 0 {
		r.sharedFBO = r.g.CreateFramebuffer()
	}
	if drainErrors(r.g, "setup") {
		return errors.New("render: GL error during setup")
	}
	slog.Debug("render: resources built", "program", r.program.Value, "geometry", r.opts.Geometry)
	return nil
}

func (r *Resources) setupGeometry() {
	g := r.g
	r.vao = g.CreateVertexArray()
	g.BindVertexArray(r.vao)

	verts := stripVertices
	if r.opts.Geometry == Indexed {
		verts = indexedVertices
	}
	r.vbo = g.CreateBuffer()
	g.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	g.BufferData(gl.ARRAY_BUFFER, f32.Bytes(binary.LittleEndian, verts...), gl.STATIC_DRAW)

	if r.opts.Geometry == Indexed {
		r.ebo = g.CreateBuffer()
		g.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
		g.BufferData(gl.ELEMENT_ARRAY_BUFFER, u16Bytes(quadIndices), gl.STATIC_DRAW)
	}

	pos := gl.Attrib{Value: attribPosition}
	tex := gl.Attrib{Value: attribTexCoord}
	g.VertexAttribPointer(pos, 2, gl.FLOAT, false, vertexStride, 0)
	g.EnableVertexAttribArray(pos)
	g.VertexAttribPointer(tex, 2, gl.FLOAT, false, vertexStride, 2*4)
	g.EnableVertexAttribArray(tex)

	// The element buffer binding is VAO state; leave it bound.
	g.BindVertexArray(gl.VertexArray{})
	g.BindBuffer(gl.ARRAY_BUFFER, gl.Buffer{})
}

func (r *Resources) teardown() {
	g := r.g
	if r.sharedFBO.Value != 0 {
		g.DeleteFramebuffer(r.sharedFBO)
		r.sharedFBO = gl.Framebuffer{}
	}
	if r.ebo.Value != 0 {
		g.DeleteBuffer(r.ebo)
		r.ebo = gl.Buffer{}
	}
	if r.vbo.Value != 0 {
		g.DeleteBuffer(r.vbo)
		r.vbo = gl.Buffer{}
	}
	if r.vao.Value != 0 {
		g.DeleteVertexArray(r.vao)
		r.vao = gl.VertexArray{}
	}
	if r.program.Value != 0 {
		g.DeleteProgram(r.program)
		r.program = gl.Program{}
	}
	r.uTexture = gl.Uniform{}
	r.uXform = gl.Uniform{}
	drainErrors(g, "teardown")
}

func u16Bytes(v []uint16) []byte {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(b[2*i:], x)
	}
	return b
}
