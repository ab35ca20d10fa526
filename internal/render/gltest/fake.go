// Package gltest provides a recording GL context for tests.
package gltest

import (
	"fmt"
	"sync"

	"golang.org/x/mobile/gl"
)

// GL records every call it receives and hands out increasing object names.
// The zero value is not usable; call New.
type GL struct {
	mu   sync.Mutex
	next uint32

	Calls []string

	// Live objects by name.
	Shaders      map[uint32]bool
	Programs     map[uint32]bool
	Buffers      map[uint32]bool
	VertexArrays map[uint32]bool
	Textures     map[uint32]bool
	Framebuffers map[uint32]bool

	Sources      map[uint32]string
	shaderType   map[uint32]gl.Enum
	Attached     map[uint32][]uint32 // program -> shaders
	BoundFBO     uint32
	BoundProgram uint32
	BoundVAO     uint32
	Uploads      [][]byte

	// Failure injection.
	FailCompile   gl.Enum // shader type whose compile fails
	FailLink      bool
	FBStatus      gl.Enum // returned by CheckFramebufferStatus when set
	PendingErrors []gl.Enum
}

func New() *GL {
	return &GL{
		Shaders:      make(map[uint32]bool),
		Programs:     make(map[uint32]bool),
		Buffers:      make(map[uint32]bool),
		VertexArrays: make(map[uint32]bool),
		Textures:     make(map[uint32]bool),
		Framebuffers: make(map[uint32]bool),
		Sources:      make(map[uint32]string),
		shaderType:   make(map[uint32]gl.Enum),
		Attached:     make(map[uint32][]uint32),
	}
}

func (g *GL) record(format string, args ...any) {
	g.Calls = append(g.Calls, fmt.Sprintf(format, args...))
}

func (g *GL) name() uint32 {
	g.next++
	return g.next
}

// Count returns how many recorded calls start with prefix.
func (g *GL) Count(prefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// Live returns the number of undeleted objects of every kind.
func (g *GL) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Shaders) + len(g.Programs) + len(g.Buffers) +
		len(g.VertexArrays) + len(g.Textures) + len(g.Framebuffers)
}

// Reset clears the call log.
func (g *GL) Reset() {
	g.mu.Lock()
	g.Calls = nil
	g.mu.Unlock()
}

// Raise queues an error for GetError.
func (g *GL) Raise(e gl.Enum) {
	g.mu.Lock()
	g.PendingErrors = append(g.PendingErrors, e)
	g.mu.Unlock()
}

func (g *GL) CreateShader(ty gl.Enum) gl.Shader {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.name()
	g.Shaders[n] = true
	g.Sources[n] = ""
	g.record("CreateShader %d", ty)
	g.shaderType[n] = ty
	return gl.Shader{Value: n}
}

func (g *GL) ShaderSource(s gl.Shader, src string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sources[s.Value] = src
	g.record("ShaderSource %d", s.Value)
}

func (g *GL) CompileShader(s gl.Shader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CompileShader %d", s.Value)
}

func (g *GL) GetShaderi(s gl.Shader, pname gl.Enum) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pname == gl.COMPILE_STATUS && g.FailCompile != 0 && g.shaderType[s.Value] == g.FailCompile {
		return 0
	}
	return 1
}

func (g *GL) GetShaderInfoLog(s gl.Shader) string { return "0:1: syntax error\x00" }

func (g *GL) DeleteShader(s gl.Shader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Shaders, s.Value)
	g.record("DeleteShader %d", s.Value)
}

func (g *GL) CreateProgram() gl.Program {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.name()
	g.Programs[n] = true
	g.record("CreateProgram")
	return gl.Program{Init: true, Value: n}
}

func (g *GL) AttachShader(p gl.Program, s gl.Shader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Attached[p.Value] = append(g.Attached[p.Value], s.Value)
	g.record("AttachShader %d %d", p.Value, s.Value)
}

func (g *GL) DetachShader(p gl.Program, s gl.Shader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.Attached[p.Value]
	for i, v := range list {
		if v == s.Value {
			g.Attached[p.Value] = append(list[:i], list[i+1:]...)
			break
		}
	}
	g.record("DetachShader %d %d", p.Value, s.Value)
}

func (g *GL) LinkProgram(p gl.Program) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("LinkProgram %d", p.Value)
}

func (g *GL) GetProgrami(p gl.Program, pname gl.Enum) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pname == gl.LINK_STATUS && g.FailLink {
		return 0
	}
	return 1
}

func (g *GL) GetProgramInfoLog(p gl.Program) string { return "link error" }

func (g *GL) DeleteProgram(p gl.Program) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Programs, p.Value)
	g.record("DeleteProgram %d", p.Value)
}

func (g *GL) UseProgram(p gl.Program) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.BoundProgram = p.Value
	g.record("UseProgram %d", p.Value)
}

func (g *GL) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetUniformLocation %s", name)
	if name == "uTexture" {
		return gl.Uniform{Value: 1}
	}
	return gl.Uniform{Value: 2}
}

func (g *GL) Uniform1i(dst gl.Uniform, v int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Uniform1i %d %d", dst.Value, v)
}

func (g *GL) UniformMatrix4fv(dst gl.Uniform, src []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("UniformMatrix4fv %d %v", dst.Value, src)
}

func (g *GL) CreateBuffer() gl.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.name()
	g.Buffers[n] = true
	g.record("CreateBuffer")
	return gl.Buffer{Value: n}
}

func (g *GL) BindBuffer(target gl.Enum, b gl.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindBuffer %d %d", target, b.Value)
}

func (g *GL) BufferData(target gl.Enum, src []byte, usage gl.Enum) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Uploads = append(g.Uploads, append([]byte(nil), src...))
	g.record("BufferData %d %d", target, len(src))
}

func (g *GL) DeleteBuffer(b gl.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Buffers, b.Value)
	g.record("DeleteBuffer %d", b.Value)
}

func (g *GL) CreateVertexArray() gl.VertexArray {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.name()
	g.VertexArrays[n] = true
	g.record("CreateVertexArray")
	return gl.VertexArray{Value: n}
}

func (g *GL) BindVertexArray(va gl.VertexArray) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.BoundVAO = va.Value
	g.record("BindVertexArray %d", va.Value)
}

func (g *GL) DeleteVertexArray(va gl.VertexArray) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.VertexArrays, va.Value)
	g.record("DeleteVertexArray %d", va.Value)
}

func (g *GL) EnableVertexAttribArray(a gl.Attrib) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("EnableVertexAttribArray %d", a.Value)
}

func (g *GL) VertexAttribPointer(dst gl.Attrib, size int, ty gl.Enum, normalized bool, stride, offset int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("VertexAttribPointer %d %d %d %d", dst.Value, size, stride, offset)
}

func (g *GL) CreateTexture() gl.Texture {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.name()
	g.Textures[n] = true
	g.record("CreateTexture")
	return gl.Texture{Value: n}
}

func (g *GL) ActiveTexture(texture gl.Enum) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ActiveTexture %d", texture)
}

func (g *GL) BindTexture(target gl.Enum, t gl.Texture) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindTexture %#x %d", uint32(target), t.Value)
}

func (g *GL) TexParameteri(target, pname gl.Enum, param int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("TexParameteri %#x %#x %#x", uint32(target), uint32(pname), param)
}

func (g *GL) DeleteTexture(t gl.Texture) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Textures, t.Value)
	g.record("DeleteTexture %d", t.Value)
}

func (g *GL) CreateFramebuffer() gl.Framebuffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.name()
	g.Framebuffers[n] = true
	g.record("CreateFramebuffer")
	return gl.Framebuffer{Value: n}
}

func (g *GL) BindFramebuffer(target gl.Enum, fb gl.Framebuffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.BoundFBO = fb.Value
	g.record("BindFramebuffer %d", fb.Value)
}

func (g *GL) FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("FramebufferTexture2D %d", t.Value)
}

func (g *GL) CheckFramebufferStatus(target gl.Enum) gl.Enum {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CheckFramebufferStatus")
	if g.FBStatus != 0 {
		return g.FBStatus
	}
	return gl.FRAMEBUFFER_COMPLETE
}

func (g *GL) DeleteFramebuffer(fb gl.Framebuffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Framebuffers, fb.Value)
	g.record("DeleteFramebuffer %d", fb.Value)
}

func (g *GL) Viewport(x, y, width, height int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Viewport %d %d %d %d", x, y, width, height)
}

func (g *GL) DrawArrays(mode gl.Enum, first, count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DrawArrays %d %d %d", mode, first, count)
}

func (g *GL) DrawElements(mode gl.Enum, count int, ty gl.Enum, offset int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DrawElements %d %d %d %d", mode, count, ty, offset)
}

func (g *GL) GetError() gl.Enum {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.PendingErrors) == 0 {
		return gl.NO_ERROR
	}
	e := g.PendingErrors[0]
	g.PendingErrors = g.PendingErrors[1:]
	return e
}
