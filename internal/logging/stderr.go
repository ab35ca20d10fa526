//go:build !android

package logging

import (
	"log/slog"
	"os"
)

func newPlatformHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}
