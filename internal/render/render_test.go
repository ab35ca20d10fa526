package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/mobile/gl"

	"ucamera/internal/render/gltest"
)

var gles = Options{Dialect: GLES3, Conversion: Hardware, Range: Full, Geometry: Strip}

func mustAcquire(t *testing.T, g GL, opts Options) *Resources {
	t.Helper()
	r := NewResources(g, opts)
	if err := r.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	return r
}

// TestSourcesHardware verifies the YUV target extension path.
func TestSourcesHardware(t *testing.T) {
	vert, frag, err := Sources(gles)
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	for _, want := range []string{"#version 300 es", "uTransform", "layout(location = 0) in vec2 aPosition", "layout(location = 1) in vec2 aTexCoord"} {
		if !strings.Contains(vert, want) {
			t.Errorf("vertex shader missing %q", want)
		}
	}
	for _, want := range []string{"GL_EXT_YUV_target", "__samplerExternal2DY2YEXT uTexture", "yuv_2_rgb(yuv, itu_601_full_range)"} {
		if !strings.Contains(frag, want) {
			t.Errorf("fragment shader missing %q", want)
		}
	}

	_, frag, _ = Sources(Options{Dialect: GLES3, Conversion: Hardware, Range: Studio})
	if !strings.Contains(frag, "yuv_2_rgb(yuv, itu_601)") {
		t.Error("studio range does not select itu_601")
	}
}

// TestSourcesManual verifies the BT.601 coefficients land in the shader.
func TestSourcesManual(t *testing.T) {
	_, frag, err := Sources(Options{Dialect: Core41, Conversion: Manual, Range: Full})
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	for _, want := range []string{"#version 410 core", "sampler2D uTexture", "1.402", "0.344136", "0.714136", "1.772", "- 128.0", "clamp(rgb / 255.0, 0.0, 1.0)"} {
		if !strings.Contains(frag, want) {
			t.Errorf("fragment shader missing %q", want)
		}
	}
	if strings.Contains(frag, "GL_EXT_YUV_target") {
		t.Error("desktop shader requires the YUV target extension")
	}

	_, studio, _ := Sources(Options{Dialect: Core41, Conversion: Manual, Range: Studio})
	if !strings.Contains(studio, "y = (y - 16.0)") {
		t.Error("studio range does not expand luma")
	}
	if strings.Contains(frag, "y = (y - 16.0)") {
		t.Error("full range expands luma")
	}
}

// TestSourcesManualGLESSamplesRawYUV verifies manual conversion on GLES still
// samples through the YUV target sampler, so it receives unconverted YUV.
func TestSourcesManualGLESSamplesRawYUV(t *testing.T) {
	_, frag, err := Sources(Options{Dialect: GLES3, Conversion: Manual, Range: Full})
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	for _, want := range []string{"#extension GL_EXT_YUV_target : require", "__samplerExternal2DY2YEXT uTexture", "1.402"} {
		if !strings.Contains(frag, want) {
			t.Errorf("fragment shader missing %q", want)
		}
	}
	if strings.Contains(frag, "yuv_2_rgb") {
		t.Error("manual conversion calls the hardware converter")
	}
}

func TestSourcesRejectsHardwareOnDesktop(t *testing.T) {
	if _, _, err := Sources(Options{Dialect: Core41, Conversion: Hardware}); err == nil {
		t.Fatal("expected error")
	}
}

// TestCompileFailureCleansUp verifies a failed compile leaves no shader
// behind and reports the driver log.
func TestCompileFailureCleansUp(t *testing.T) {
	for _, ty := range []gl.Enum{gl.VERTEX_SHADER, gl.FRAGMENT_SHADER} {
		g := gltest.New()
		g.FailCompile = ty
		r := NewResources(g, gles)
		err := r.Acquire()
		if err == nil || !strings.Contains(err.Error(), "syntax error") {
			t.Fatalf("%s: Acquire = %v", shaderKind(ty), err)
		}
		if g.Live() != 0 {
			t.Errorf("%s: %d objects leaked", shaderKind(ty), g.Live())
		}
		if r.Refs() != 0 || r.Ready() {
			t.Errorf("%s: refs=%d ready=%v after failure", shaderKind(ty), r.Refs(), r.Ready())
		}
	}
}

// TestLinkDetachesShaders verifies both shaders are detached and deleted
// whether or not the link succeeds.
func TestLinkDetachesShaders(t *testing.T) {
	for _, fail := range []bool{false, true} {
		g := gltest.New()
		g.FailLink = fail
		vert, frag, _ := Sources(gles)
		prog, err := linkProgram(g, vert, frag)
		if (err != nil) != fail {
			t.Fatalf("fail=%v: err = %v", fail, err)
		}
		if len(g.Shaders) != 0 {
			t.Errorf("fail=%v: %d shaders left", fail, len(g.Shaders))
		}
		if g.Count("DetachShader") != 2 {
			t.Errorf("fail=%v: %d detaches", fail, g.Count("DetachShader"))
		}
		if fail && len(g.Programs) != 0 {
			t.Error("failed program not deleted")
		}
		if !fail && !g.Programs[prog.Value] {
			t.Error("linked program not live")
		}
	}
}

func TestAcquireIsRefCounted(t *testing.T) {
	g := gltest.New()
	r := mustAcquire(t, g, gles)
	if err := r.Acquire(); err != nil {
		t.Fatal(err)
	}
	if n := g.Count("CreateProgram"); n != 1 {
		t.Errorf("program built %d times", n)
	}
	if n := g.Count("CreateVertexArray"); n != 1 {
		t.Errorf("geometry built %d times", n)
	}
	if r.SharedFramebuffer().Value == 0 {
		t.Error("no shared framebuffer")
	}

	r.Release()
	if !r.Ready() || g.Live() == 0 {
		t.Fatal("resources torn down with a reference left")
	}
	r.Release()
	if r.Ready() || g.Live() != 0 {
		t.Fatalf("ready=%v live=%d after last release", r.Ready(), g.Live())
	}
	r.Release() // extra release is logged and ignored
	if r.Refs() != 0 {
		t.Errorf("refs = %d", r.Refs())
	}
}

func TestIndexedGeometryUploadsIndices(t *testing.T) {
	g := gltest.New()
	opts := gles
	opts.Geometry = Indexed
	mustAcquire(t, g, opts)

	if len(g.Uploads) != 2 {
		t.Fatalf("%d uploads, want vertices and indices", len(g.Uploads))
	}
	if got := len(g.Uploads[0]); got != 16*4 {
		t.Errorf("vertex upload %d bytes", got)
	}
	want := []byte{0, 0, 1, 0, 3, 0, 1, 0, 2, 0, 3, 0}
	if string(g.Uploads[1]) != string(want) {
		t.Errorf("indices = %v, want %v", g.Uploads[1], want)
	}
}

func drawInfo(r *Resources) DrawInfo {
	return DrawInfo{
		Source:      gl.Texture{Value: 500},
		Target:      gl.Texture{Value: 7},
		Framebuffer: r.SharedFramebuffer(),
		Width:       640,
		Height:      480,
		Transform:   mgl32.Ident4(),
	}
}

func TestRenderFrameDraws(t *testing.T) {
	for _, tc := range []struct {
		geometry Geometry
		want     string
	}{
		{Strip, fmt.Sprintf("DrawArrays %d 0 4", gl.TRIANGLE_STRIP)},
		{Indexed, fmt.Sprintf("DrawElements %d 6 %d 0", gl.TRIANGLES, gl.UNSIGNED_SHORT)},
	} {
		g := gltest.New()
		opts := gles
		opts.Geometry = tc.geometry
		r := mustAcquire(t, g, opts)
		g.Reset()

		if err := r.RenderFrame(drawInfo(r)); err != nil {
			t.Fatalf("RenderFrame: %v", err)
		}
		if g.Count(tc.want) != 1 {
			t.Errorf("missing %q in %v", tc.want, g.Calls)
		}
		if g.Count(fmt.Sprintf("BindTexture %#x 500", uint32(TextureExternalOES))) != 1 {
			t.Error("camera texture not bound as external")
		}
		if g.Count("Viewport 0 0 640 480") != 1 {
			t.Error("viewport not set to target size")
		}
		if g.BoundFBO != 0 || g.BoundProgram != 0 || g.BoundVAO != 0 {
			t.Errorf("state left bound: fbo=%d program=%d vao=%d", g.BoundFBO, g.BoundProgram, g.BoundVAO)
		}
	}
}

// TestRenderFrameRejectsEmptyTarget verifies nothing is drawn for a target
// without pixels.
func TestRenderFrameRejectsEmptyTarget(t *testing.T) {
	g := gltest.New()
	r := mustAcquire(t, g, gles)
	g.Reset()

	for _, dim := range [][2]int{{0, 480}, {640, 0}, {-1, -1}} {
		d := drawInfo(r)
		d.Width, d.Height = dim[0], dim[1]
		if err := r.RenderFrame(d); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("%v: err = %v", dim, err)
		}
	}
	if len(g.Calls) != 0 {
		t.Errorf("GL calls made: %v", g.Calls)
	}
}

func TestRenderFrameIncompleteFramebuffer(t *testing.T) {
	g := gltest.New()
	r := mustAcquire(t, g, gles)
	g.FBStatus = gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT

	err := r.RenderFrame(drawInfo(r))
	var fe *FramebufferError
	if !errors.As(err, &fe) || fe.Status != gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT {
		t.Fatalf("err = %v", err)
	}
	if g.BoundFBO != 0 {
		t.Error("incomplete framebuffer left bound")
	}
	if g.Count("DrawArrays") != 0 {
		t.Error("drew into incomplete framebuffer")
	}
}

func TestRenderFrameNotReady(t *testing.T) {
	r := NewResources(gltest.New(), gles)
	if err := r.RenderFrame(DrawInfo{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v", err)
	}
	r = mustAcquire(t, gltest.New(), gles)
	if err := r.RenderFrame(DrawInfo{Width: 1, Height: 1}); !errors.Is(err, ErrInvalidDrawInfo) {
		t.Fatalf("err = %v", err)
	}
}

// TestRenderFrameDrainsErrors verifies errors raised during a draw are
// reported and cleared.
func TestRenderFrameDrainsErrors(t *testing.T) {
	g := gltest.New()
	r := mustAcquire(t, g, gles)
	g.Raise(gl.INVALID_OPERATION) // stale, cleared on entry
	if err := r.RenderFrame(drawInfo(r)); err != nil {
		t.Fatalf("stale error failed the draw: %v", err)
	}
	if len(g.PendingErrors) != 0 {
		t.Error("errors left pending")
	}
}

func TestStreamLifecycle(t *testing.T) {
	g := gltest.New()
	r := NewResources(g, gles)

	s, err := NewStream(r, gl.Texture{Value: 7}, 640, 480)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if r.Refs() != 1 {
		t.Fatalf("refs = %d", r.Refs())
	}
	src := s.Source()
	if !g.Textures[src.Value] {
		t.Fatal("camera texture not created")
	}
	if g.Count(fmt.Sprintf("TexParameteri %#x %#x %#x", uint32(TextureExternalOES), uint32(gl.TEXTURE_WRAP_S), int(gl.CLAMP_TO_EDGE))) != 1 {
		t.Error("wrap mode not set on external target")
	}

	if err := s.Render(mgl32.Ident4()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	s.Retarget(gl.Texture{Value: 9}, 320, 240)
	if info := s.Info(mgl32.Ident4()); info.Target.Value != 9 || info.Width != 320 {
		t.Errorf("info after retarget = %+v", info)
	}

	s.Release()
	s.Release()
	if g.Live() != 0 || r.Refs() != 0 {
		t.Errorf("live=%d refs=%d after release", g.Live(), r.Refs())
	}
}

func TestStreamAbandonSkipsGL(t *testing.T) {
	g := gltest.New()
	r := NewResources(g, gles)
	s, err := NewStream(r, gl.Texture{Value: 7}, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	g.Reset()
	s.Abandon()
	s.Release()
	if len(g.Calls) != 0 {
		t.Errorf("GL calls after abandon: %v", g.Calls)
	}
}

func TestNewStreamFailureReleasesResources(t *testing.T) {
	g := gltest.New()
	g.FailLink = true
	r := NewResources(g, gles)
	if _, err := NewStream(r, gl.Texture{Value: 7}, 64, 64); err == nil {
		t.Fatal("expected error")
	}
	if r.Refs() != 0 || g.Live() != 0 {
		t.Errorf("refs=%d live=%d", r.Refs(), g.Live())
	}
}

// TestManualCoefficientsInvertEncoder verifies the shader's BT.601 constants
// undo image/color's full-range encoder.
func TestManualCoefficientsInvertEncoder(t *testing.T) {
	for _, c := range []color.RGBA{{235, 235, 235, 255}, {235, 16, 16, 255}, {16, 235, 16, 255}, {16, 16, 235, 255}, {0, 0, 0, 255}} {
		y, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
		u, v := float64(cb)-128, float64(cr)-128
		rgb := [3]float64{
			float64(y) + bt601RV*v,
			float64(y) - bt601GU*u - bt601GV*v,
			float64(y) + bt601BU*u,
		}
		for i, want := range []uint8{c.R, c.G, c.B} {
			if d := math.Abs(rgb[i] - float64(want)); d > 2 {
				t.Errorf("%v channel %d = %.1f, want %d", c, i, rgb[i], want)
			}
		}
	}
}
