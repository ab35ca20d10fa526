// Package logging installs the process-wide slog handler.
//
// On Android records go to logcat under Tag; everywhere else they go to
// stderr as text.
package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Tag is the logcat tag used on Android.
const Tag = "UCamera"

// Setup installs the default logger at the given level and returns it.
func Setup(level slog.Level) *slog.Logger {
	l := slog.New(newPlatformHandler(level))
	slog.SetDefault(l)
	return l
}

// lineHandler formats each record as a single text line and hands it to sink
// together with the record level.
type lineHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	inner slog.Handler
	sink  func(slog.Level, string)
}

func newLineHandler(level slog.Leveler, sink func(slog.Level, string)) *lineHandler {
	buf := &bytes.Buffer{}
	opts := &slog.HandlerOptions{
		Level: level,
		// logcat stamps its own time.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}
	return &lineHandler{
		mu:    &sync.Mutex{},
		buf:   buf,
		inner: slog.NewTextHandler(buf, opts),
		sink:  sink,
	}
}

func (h *lineHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	h.sink(r.Level, strings.TrimRight(h.buf.String(), "\n"))
	return nil
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lineHandler{mu: h.mu, buf: h.buf, inner: h.inner.WithAttrs(attrs), sink: h.sink}
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	return &lineHandler{mu: h.mu, buf: h.buf, inner: h.inner.WithGroup(name), sink: h.sink}
}
