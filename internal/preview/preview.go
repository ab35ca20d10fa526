//go:build !android

// Package preview shows the YUV converter on a desktop window, fed by a
// synthetic camera frame.
package preview

import (
	"fmt"
	"image/color"
	"log/slog"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	mgl "golang.org/x/mobile/gl"

	"ucamera/internal/config"
	"ucamera/internal/desktopgl"
	"ucamera/internal/render"
)

func initWindow(c config.PreviewConfig) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(c.Width, c.Height, c.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	return window, nil
}

// Run opens the preview window and converts a scrolling test pattern every
// frame until the window is closed or Escape is pressed.
func Run(cfg config.Config) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if cfg.Conversion != config.ConversionManual {
		slog.Info("preview: desktop GL has no YUV target extension, using manual conversion")
		cfg.Conversion = config.ConversionManual
	}
	opts, err := render.OptionsFromConfig(cfg, render.Core41)
	if err != nil {
		return err
	}

	window, err := initWindow(cfg.Preview)
	if err != nil {
		return err
	}
	defer glfw.Terminate()
	defer window.Destroy()

	ctx, err := desktopgl.Init()
	if err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	slog.Info("preview: context ready", "version", gl.GoStr(gl.GetString(gl.VERSION)))

	w, h := cfg.Preview.Width, cfg.Preview.Height
	target := newTarget(w, h)
	defer gl.DeleteTextures(1, &target)

	res := render.NewResources(ctx, opts)
	stream, err := render.NewStream(res, mgl.Texture{Value: target}, w, h)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	defer stream.Release()

	var readFBO uint32
	gl.GenFramebuffers(1, &readFBO)
	defer gl.DeleteFramebuffers(1, &readFBO)

	// Camera frames arrive upside down relative to GL texture space.
	flip := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.Scale3D(1, -1, 1))

	src := stream.Source().Value
	offset := 0
	checked := false
	for !window.ShouldClose() {
		glfw.PollEvents()
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
		}

		upload(src, w, h, Pattern(w, h, offset))
		offset += 2

		if err := stream.Render(flip); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if !checked {
			checkFirstBar(readFBO, target, h)
			checked = true
		}
		blit(readFBO, target, w, h)
		window.SwapBuffers()
	}
	return nil
}

func newTarget(w, h int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

func upload(tex uint32, w, h int, pix []byte) {
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB8, int32(w), int32(h), 0, gl.RGB, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func blit(readFBO, target uint32, w, h int) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, readFBO)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, target, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(w), int32(h), 0, 0, int32(w), int32(h), gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// checkFirstBar reads back one converted pixel of the first bar and logs how
// far it is from the source color.
func checkFirstBar(readFBO, target uint32, h int) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, readFBO)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, target, 0)
	var px [4]uint8
	gl.ReadPixels(1, int32(h/2), 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&px[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	want := Bars[0]
	got := color.RGBA{px[0], px[1], px[2], px[3]}
	slog.Info("preview: first bar", "want", want, "got", got, "delta", maxDelta(want, got))
}

func maxDelta(a, b color.RGBA) int {
	d := 0
	for _, p := range [][2]uint8{{a.R, b.R}, {a.G, b.G}, {a.B, b.B}} {
		v := int(p[0]) - int(p[1])
		if v < 0 {
			v = -v
		}
		d = max(d, v)
	}
	return d
}
