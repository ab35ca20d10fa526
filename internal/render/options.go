package render

import (
	"fmt"

	"golang.org/x/mobile/gl"

	"ucamera/internal/config"
)

// Dialect selects the GLSL version header and the sampler type of the
// camera texture.
type Dialect int

const (
	GLES3  Dialect = iota // #version 300 es, samplerExternalOES with YUV target
	Core41                // #version 410 core, plain sampler2D
)

// Conversion selects how YUV is turned into RGB.
type Conversion int

const (
	Hardware Conversion = iota
	Manual
)

// Range selects full (0..255) or studio (16..235) quantization.
type Range int

const (
	Full Range = iota
	Studio
)

// Geometry selects how the full-screen quad is drawn.
type Geometry int

const (
	Strip   Geometry = iota // 4 vertices, TRIANGLE_STRIP
	Indexed                 // 4 vertices, 6 indices, TRIANGLES
)

// Options configures shader generation and geometry.
type Options struct {
	Dialect    Dialect
	Conversion Conversion
	Range      Range
	Geometry   Geometry
}

// OptionsFromConfig maps the YAML configuration onto Options for d.
func OptionsFromConfig(c config.Config, d Dialect) (Options, error) {
	o := Options{Dialect: d}
	switch c.Conversion {
	case config.ConversionHardware:
		o.Conversion = Hardware
	case config.ConversionManual:
		o.Conversion = Manual
	default:
		return o, fmt.Errorf("render: unknown conversion %q", c.Conversion)
	}
	switch c.ColorRange {
	case config.RangeFull:
		o.Range = Full
	case config.RangeStudio:
		o.Range = Studio
	default:
		return o, fmt.Errorf("render: unknown color range %q", c.ColorRange)
	}
	switch c.Geometry {
	case config.GeometryStrip:
		o.Geometry = Strip
	case config.GeometryIndexed:
		o.Geometry = Indexed
	default:
		return o, fmt.Errorf("render: unknown geometry %q", c.Geometry)
	}
	return o, o.validate()
}

func (o Options) validate() error {
	if o.Dialect != GLES3 && o.Dialect != Core41 {
		return fmt.Errorf("render: unknown dialect %d", o.Dialect)
	}
	if o.Dialect == Core41 && o.Conversion == Hardware {
		return fmt.Errorf("render: hardware conversion needs GL_EXT_YUV_target (GLES only)")
	}
	return nil
}

// SourceTarget is the texture target the camera texture binds to.
func (o Options) SourceTarget() gl.Enum {
	if o.Dialect == GLES3 {
		return TextureExternalOES
	}
	return gl.TEXTURE_2D
}
