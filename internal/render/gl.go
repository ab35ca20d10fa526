package render

import (
	"fmt"
	"log/slog"

	"golang.org/x/mobile/gl"
)

// TEXTURE_EXTERNAL_OES from OES_EGL_image_external; not part of the core
// GLES enum set.
const TextureExternalOES gl.Enum = 0x8D65

// GL is the part of an OpenGL (ES) 3.0 context the converter drives. It is
// satisfied by golang.org/x/mobile/gl.Context on Android and by
// internal/desktopgl on the desktop.
type GL interface {
	CreateShader(ty gl.Enum) gl.Shader
	ShaderSource(s gl.Shader, src string)
	CompileShader(s gl.Shader)
	GetShaderi(s gl.Shader, pname gl.Enum) int
	GetShaderInfoLog(s gl.Shader) string
	DeleteShader(s gl.Shader)

	CreateProgram() gl.Program
	AttachShader(p gl.Program, s gl.Shader)
	DetachShader(p gl.Program, s gl.Shader)
	LinkProgram(p gl.Program)
	GetProgrami(p gl.Program, pname gl.Enum) int
	GetProgramInfoLog(p gl.Program) string
	DeleteProgram(p gl.Program)
	UseProgram(p gl.Program)
	GetUniformLocation(p gl.Program, name string) gl.Uniform
	Uniform1i(dst gl.Uniform, v int)
	UniformMatrix4fv(dst gl.Uniform, src []float32)

	CreateBuffer() gl.Buffer
	BindBuffer(target gl.Enum, b gl.Buffer)
	BufferData(target gl.Enum, src []byte, usage gl.Enum)
	DeleteBuffer(b gl.Buffer)

	CreateVertexArray() gl.VertexArray
	BindVertexArray(va gl.VertexArray)
	DeleteVertexArray(va gl.VertexArray)
	EnableVertexAttribArray(a gl.Attrib)
	VertexAttribPointer(dst gl.Attrib, size int, ty gl.Enum, normalized bool, stride, offset int)

	CreateTexture() gl.Texture
	ActiveTexture(texture gl.Enum)
	BindTexture(target gl.Enum, t gl.Texture)
	TexParameteri(target, pname gl.Enum, param int)
	DeleteTexture(t gl.Texture)

	CreateFramebuffer() gl.Framebuffer
	BindFramebuffer(target gl.Enum, fb gl.Framebuffer)
	FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int)
	CheckFramebufferStatus(target gl.Enum) gl.Enum
	DeleteFramebuffer(fb gl.Framebuffer)

	Viewport(x, y, width, height int)
	DrawArrays(mode gl.Enum, first, count int)
	DrawElements(mode gl.Enum, count int, ty gl.Enum, offset int)
	GetError() gl.Enum
}

// drainErrors logs and clears every pending GL error. It reports whether
// there were any.
func drainErrors(g GL, op string) bool {
	found := false
	// The driver keeps one flag per error kind; bound the loop in case a
	// broken context keeps reporting.
	for i := 0; i < 16; i++ {
		e := g.GetError()
		if e == gl.NO_ERROR {
			break
		}
		slog.Error("render: GL error", "op", op, "code", hexEnum(e))
		found = true
	}
	return found
}

func hexEnum(e gl.Enum) string { return fmt.Sprintf("0x%04x", uint32(e)) }
