package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding an optional override file.
const EnvPath = "UCAMERA_CONFIG"

//go:embed default.yaml
var defaultYAML []byte

// Conversion strategies.
const (
	ConversionHardware = "hardware" // GL_EXT_YUV_target yuv_2_rgb
	ConversionManual   = "manual"   // BT.601 matrix in the fragment shader
)

// Color ranges.
const (
	RangeFull   = "full"
	RangeStudio = "studio"
)

// Quad geometry variants.
const (
	GeometryStrip   = "strip"
	GeometryIndexed = "indexed"
)

// Config holds the plugin configuration.
type Config struct {
	Conversion string `yaml:"conversion"`  // hardware, manual
	ColorRange string `yaml:"color_range"` // full, studio
	Geometry   string `yaml:"geometry"`    // strip, indexed

	SessionClass      string `yaml:"session_class"`      // JNI class path of the capture session wrapper
	CallbackMethod    string `yaml:"callback_method"`    // startCaptureSession
	CallbackSignature string `yaml:"callback_signature"` // (I)Z

	LogLevel            string `yaml:"log_level"` // debug, info, warn, error
	EnforceRenderThread bool   `yaml:"enforce_render_thread"`

	Preview PreviewConfig `yaml:"preview"`
}

// PreviewConfig configures the desktop preview window.
type PreviewConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Default returns the embedded configuration.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal(defaultYAML, &c); err != nil {
		panic(fmt.Errorf("embedded config: %w", err))
	}
	return c
}

// Load reads path on top of the embedded defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// FromEnv loads the file named by $UCAMERA_CONFIG, falling back to the
// defaults when it is unset or unusable.
func FromEnv() Config {
	c, err := Load(os.Getenv(EnvPath))
	if err != nil {
		slog.Warn("config: falling back to defaults", "path", os.Getenv(EnvPath), "err", err)
		return Default()
	}
	return c
}

// Validate rejects unknown enum values and empty JNI names.
func (c *Config) Validate() error {
	switch c.Conversion {
	case ConversionHardware, ConversionManual:
	default:
		return fmt.Errorf("config: unknown conversion %q", c.Conversion)
	}
	switch c.ColorRange {
	case RangeFull, RangeStudio:
	default:
		return fmt.Errorf("config: unknown color_range %q", c.ColorRange)
	}
	switch c.Geometry {
	case GeometryStrip, GeometryIndexed:
	default:
		return fmt.Errorf("config: unknown geometry %q", c.Geometry)
	}
	if c.SessionClass == "" || c.CallbackMethod == "" || c.CallbackSignature == "" {
		return fmt.Errorf("config: session_class, callback_method and callback_signature are required")
	}
	if strings.Contains(c.SessionClass, ".") {
		return fmt.Errorf("config: session_class must use '/' separators, got %q", c.SessionClass)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Preview.Width < 1 || c.Preview.Height < 1 {
		return fmt.Errorf("config: preview size %dx%d", c.Preview.Width, c.Preview.Height)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
