package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Conversion != ConversionHardware {
		t.Errorf("conversion = %q, want %q", c.Conversion, ConversionHardware)
	}
	if c.CallbackSignature != "(I)Z" {
		t.Errorf("callback_signature = %q", c.CallbackSignature)
	}
	if !c.EnforceRenderThread {
		t.Error("enforce_render_thread should default to true")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucamera.yaml")
	body := "conversion: manual\ncolor_range: studio\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Conversion != ConversionManual || c.ColorRange != RangeStudio {
		t.Errorf("got conversion=%q range=%q", c.Conversion, c.ColorRange)
	}
	// Untouched keys keep their defaults.
	if c.Geometry != GeometryStrip {
		t.Errorf("geometry = %q, want default %q", c.Geometry, GeometryStrip)
	}
	lvl, err := c.Level()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("level = %v, %v", lvl, err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Error("empty path should return defaults")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"conversion", func(c *Config) { c.Conversion = "cpu" }},
		{"range", func(c *Config) { c.ColorRange = "hdr" }},
		{"geometry", func(c *Config) { c.Geometry = "fan" }},
		{"class", func(c *Config) { c.SessionClass = "" }},
		{"dotted class", func(c *Config) { c.SessionClass = "com.uralstech.ucamera.Wrapper" }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
		{"preview", func(c *Config) { c.Preview.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
