//go:build !android

// Command ucamera-preview renders a synthetic camera frame through the YUV
// converter on a desktop window.
package main

import (
	"flag"
	"log/slog"
	"os"

	"ucamera/internal/config"
	"ucamera/internal/logging"
	"ucamera/internal/preview"
)

func main() {
	path := flag.String("config", os.Getenv(config.EnvPath), "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		slog.Error("preview: config", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logging.Setup(level)

	if err := preview.Run(cfg); err != nil {
		slog.Error("preview: exited", "err", err)
		os.Exit(1)
	}
}
