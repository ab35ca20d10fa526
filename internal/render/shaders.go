package render

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/mobile/gl"
)

// ITU-R BT.601 YCbCr -> RGB, applied to 0..255 samples with chroma centred
// on 128.
const (
	bt601RV = 1.402
	bt601GU = 0.344136
	bt601GV = 0.714136
	bt601BU = 1.772
)

// Studio (limited) range expansion factors.
const (
	studioLumaOffset  = 16.0
	studioLumaScale   = 255.0 / 219.0
	studioChromaScale = 255.0 / 224.0
)

// Attribute locations shared by every vertex shader variant.
const (
	attribPosition = 0
	attribTexCoord = 1
)

// Uniform names.
const (
	uniformTexture   = "uTexture"
	uniformTransform = "uTransform"
)

// Vertex shader: full-screen quad, texture coordinates run through the
// surface-texture transform.
const vertBody = `
layout(location = 0) in vec2 aPosition;
layout(location = 1) in vec2 aTexCoord;

uniform mat4 uTransform;

out vec2 vTexCoord;

void main() {
    gl_Position = vec4(aPosition, 0.0, 1.0);
    vTexCoord = (uTransform * vec4(aTexCoord, 0.0, 1.0)).xy;
}
`

// Hardware conversion: the YUV target extension hands back raw YUV and
// converts it with its built-in matrix.
const hardwareFragBody = `
in vec2 vTexCoord;
out vec4 outColor;

void main() {
    vec3 yuv = texture(uTexture, vTexCoord).xyz;
    outColor = vec4(yuv_2_rgb(yuv, %s), 1.0);
}
`

// Manual conversion: scale to 0..255, apply BT.601, renormalize.
const manualFragBody = `
in vec2 vTexCoord;
out vec4 outColor;

vec3 yuvToRGB(vec3 yuv) {
    float y = yuv.r * 255.0;
    float u = yuv.g * 255.0 - 128.0;
    float v = yuv.b * 255.0 - 128.0;
%s
    vec3 rgb = vec3(
        y + %g * v,
        y - %g * u - %g * v,
        y + %g * u
    );
    return clamp(rgb / 255.0, 0.0, 1.0);
}

void main() {
    outColor = vec4(yuvToRGB(texture(uTexture, vTexCoord).xyz), 1.0);
}
`

func studioExpansion() string {
	return fmt.Sprintf(
		"    y = (y - %.1f) * %.6f;\n    u *= %.6f;\n    v *= %.6f;",
		studioLumaOffset, studioLumaScale, studioChromaScale, studioChromaScale)
}

// Sources returns the vertex and fragment shader text for opts.
func Sources(opts Options) (vert, frag string, err error) {
	if err := opts.validate(); err != nil {
		return "", "", err
	}

	var header string
	switch opts.Dialect {
	case GLES3:
		header = "#version 300 es\n"
	case Core41:
		header = "#version 410 core\n"
	}
	vert = header + vertBody

	var b strings.Builder
	b.WriteString(header)
	switch opts.Dialect {
	case GLES3:
		b.WriteString("#extension GL_EXT_YUV_target : require\n")
		b.WriteString("precision mediump float;\n")
		b.WriteString("precision mediump __samplerExternal2DY2YEXT;\n")
		b.WriteString("uniform __samplerExternal2DY2YEXT " + uniformTexture + ";\n")
	case Core41:
		b.WriteString("uniform sampler2D " + uniformTexture + ";\n")
	}

	switch opts.Conversion {
	case Hardware:
		standard := "itu_601_full_range"
		if opts.Range == Studio {
			standard = "itu_601"
		}
		fmt.Fprintf(&b, hardwareFragBody, standard)
	case Manual:
		expand := ""
		if opts.Range == Studio {
			expand = studioExpansion()
		}
		fmt.Fprintf(&b, manualFragBody, expand, bt601RV, bt601GU, bt601GV, bt601BU)
	}
	return vert, b.String(), nil
}

func shaderKind(ty gl.Enum) string {
	switch ty {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	}
	return hexEnum(ty)
}

func compileShader(g GL, ty gl.Enum, src string) (gl.Shader, error) {
	sh := g.CreateShader(ty)
	if sh.Value == 0 {
		drainErrors(g, "CreateShader")
		return gl.Shader{}, fmt.Errorf("create %s shader", shaderKind(ty))
	}
	g.ShaderSource(sh, src)
	g.CompileShader(sh)

	if g.GetShaderi(sh, gl.COMPILE_STATUS) == 0 {
		info := strings.TrimRight(g.GetShaderInfoLog(sh), "\x00\n")
		slog.Error("render: shader compile failed", "type", shaderKind(ty), "log", info)
		g.DeleteShader(sh)
		return gl.Shader{}, fmt.Errorf("compile %s shader: %s", shaderKind(ty), info)
	}
	return sh, nil
}

func linkProgram(g GL, vertSrc, fragSrc string) (gl.Program, error) {
	vs, err := compileShader(g, gl.VERTEX_SHADER, vertSrc)
	if err != nil {
		return gl.Program{}, err
	}
	fs, err := compileShader(g, gl.FRAGMENT_SHADER, fragSrc)
	if err != nil {
		g.DeleteShader(vs)
		return gl.Program{}, err
	}

	prog := g.CreateProgram()
	if prog.Value == 0 {
		g.DeleteShader(vs)
		g.DeleteShader(fs)
		drainErrors(g, "CreateProgram")
		return gl.Program{}, fmt.Errorf("create program")
	}
	g.AttachShader(prog, vs)
	g.AttachShader(prog, fs)
	g.LinkProgram(prog)

	g.DetachShader(prog, vs)
	g.DetachShader(prog, fs)
	g.DeleteShader(vs)
	g.DeleteShader(fs)

	if g.GetProgrami(prog, gl.LINK_STATUS) == 0 {
		info := strings.TrimRight(g.GetProgramInfoLog(prog), "\x00\n")
		slog.Error("render: program link failed", "log", info)
		g.DeleteProgram(prog)
		return gl.Program{}, fmt.Errorf("link program: %s", info)
	}
	return prog, nil
}
