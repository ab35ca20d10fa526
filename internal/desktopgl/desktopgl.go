//go:build !android

// Package desktopgl drives the converter through a desktop OpenGL 4.1 core
// context. Calls go straight to the driver, so the caller must own the
// context's thread.
package desktopgl

import (
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	mgl "golang.org/x/mobile/gl"
)

// Context implements render.GL on top of go-gl.
type Context struct{}

// Init loads the GL entry points. The context must already be current.
func Init() (Context, error) {
	if err := gl.Init(); err != nil {
		return Context{}, err
	}
	return Context{}, nil
}

func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }

func (Context) CreateShader(ty mgl.Enum) mgl.Shader {
	return mgl.Shader{Value: gl.CreateShader(uint32(ty))}
}

func (Context) ShaderSource(s mgl.Shader, src string) {
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(s.Value, 1, csources, nil)
	free()
}

func (Context) CompileShader(s mgl.Shader) { gl.CompileShader(s.Value) }

func (Context) GetShaderi(s mgl.Shader, pname mgl.Enum) int {
	var v int32
	gl.GetShaderiv(s.Value, uint32(pname), &v)
	return int(v)
}

func (Context) GetShaderInfoLog(s mgl.Shader) string {
	var logLen int32
	gl.GetShaderiv(s.Value, gl.INFO_LOG_LENGTH, &logLen)
	buf := strings.Repeat("\x00", int(logLen+1))
	gl.GetShaderInfoLog(s.Value, logLen, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

func (Context) DeleteShader(s mgl.Shader) { gl.DeleteShader(s.Value) }

func (Context) CreateProgram() mgl.Program {
	return mgl.Program{Init: true, Value: gl.CreateProgram()}
}

func (Context) AttachShader(p mgl.Program, s mgl.Shader) { gl.AttachShader(p.Value, s.Value) }
func (Context) DetachShader(p mgl.Program, s mgl.Shader) { gl.DetachShader(p.Value, s.Value) }
func (Context) LinkProgram(p mgl.Program)                { gl.LinkProgram(p.Value) }

func (Context) GetProgrami(p mgl.Program, pname mgl.Enum) int {
	var v int32
	gl.GetProgramiv(p.Value, uint32(pname), &v)
	return int(v)
}

func (Context) GetProgramInfoLog(p mgl.Program) string {
	var logLen int32
	gl.GetProgramiv(p.Value, gl.INFO_LOG_LENGTH, &logLen)
	buf := strings.Repeat("\x00", int(logLen+1))
	gl.GetProgramInfoLog(p.Value, logLen, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

func (Context) DeleteProgram(p mgl.Program) { gl.DeleteProgram(p.Value) }
func (Context) UseProgram(p mgl.Program)    { gl.UseProgram(p.Value) }

func (Context) GetUniformLocation(p mgl.Program, name string) mgl.Uniform {
	return mgl.Uniform{Value: gl.GetUniformLocation(p.Value, gl.Str(name+"\x00"))}
}

func (Context) Uniform1i(dst mgl.Uniform, v int) { gl.Uniform1i(dst.Value, int32(v)) }

func (Context) UniformMatrix4fv(dst mgl.Uniform, src []float32) {
	gl.UniformMatrix4fv(dst.Value, int32(len(src)/16), false, &src[0])
}

func (Context) CreateBuffer() mgl.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return mgl.Buffer{Value: b}
}

func (Context) BindBuffer(target mgl.Enum, b mgl.Buffer) { gl.BindBuffer(uint32(target), b.Value) }

func (Context) BufferData(target mgl.Enum, src []byte, usage mgl.Enum) {
	gl.BufferData(uint32(target), len(src), gl.Ptr(src), uint32(usage))
}

func (Context) DeleteBuffer(b mgl.Buffer) { gl.DeleteBuffers(1, &b.Value) }

func (Context) CreateVertexArray() mgl.VertexArray {
	var va uint32
	gl.GenVertexArrays(1, &va)
	return mgl.VertexArray{Value: va}
}

func (Context) BindVertexArray(va mgl.VertexArray)   { gl.BindVertexArray(va.Value) }
func (Context) DeleteVertexArray(va mgl.VertexArray) { gl.DeleteVertexArrays(1, &va.Value) }
func (Context) EnableVertexAttribArray(a mgl.Attrib) { gl.EnableVertexAttribArray(uint32(a.Value)) }

func (Context) VertexAttribPointer(dst mgl.Attrib, size int, ty mgl.Enum, normalized bool, stride, offset int) {
	gl.VertexAttribPointer(uint32(dst.Value), int32(size), uint32(ty), normalized, int32(stride), glOffset(offset))
}

func (Context) CreateTexture() mgl.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return mgl.Texture{Value: t}
}

func (Context) ActiveTexture(texture mgl.Enum)             { gl.ActiveTexture(uint32(texture)) }
func (Context) BindTexture(target mgl.Enum, t mgl.Texture) { gl.BindTexture(uint32(target), t.Value) }

func (Context) TexParameteri(target, pname mgl.Enum, param int) {
	gl.TexParameteri(uint32(target), uint32(pname), int32(param))
}

func (Context) DeleteTexture(t mgl.Texture) { gl.DeleteTextures(1, &t.Value) }

func (Context) CreateFramebuffer() mgl.Framebuffer {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return mgl.Framebuffer{Value: fb}
}

func (Context) BindFramebuffer(target mgl.Enum, fb mgl.Framebuffer) {
	gl.BindFramebuffer(uint32(target), fb.Value)
}

func (Context) FramebufferTexture2D(target, attachment, texTarget mgl.Enum, t mgl.Texture, level int) {
	gl.FramebufferTexture2D(uint32(target), uint32(attachment), uint32(texTarget), t.Value, int32(level))
}

func (Context) CheckFramebufferStatus(target mgl.Enum) mgl.Enum {
	return mgl.Enum(gl.CheckFramebufferStatus(uint32(target)))
}

func (Context) DeleteFramebuffer(fb mgl.Framebuffer) { gl.DeleteFramebuffers(1, &fb.Value) }

func (Context) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (Context) DrawArrays(mode mgl.Enum, first, count int) {
	gl.DrawArrays(uint32(mode), int32(first), int32(count))
}

func (Context) DrawElements(mode mgl.Enum, count int, ty mgl.Enum, offset int) {
	gl.DrawElements(uint32(mode), int32(count), uint32(ty), glOffset(offset))
}

func (Context) GetError() mgl.Enum { return mgl.Enum(gl.GetError()) }
