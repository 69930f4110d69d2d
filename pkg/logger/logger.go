package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// HandlerOptions configures the slog handler.
type HandlerOptions struct {
	SlogOpts slog.HandlerOptions
	Writer   io.Writer
}

// Handler is a slog.Handler that renders records as single-line
// human-readable output with a JSON attribute tail.
type Handler struct {
	opts  HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
	out   io.Writer
}

// NewHandler creates a new Handler. A nil opts uses stdout at info level.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
			Writer:   os.Stdout,
		}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	return &Handler{
		opts: *opts,
		mu:   &sync.Mutex{},
		out:  opts.Writer,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.SlogOpts.Level != nil {
		minLevel = h.opts.SlogOpts.Level.Level()
	}

	return level >= minLevel
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()

		return true
	})

	tail := ""
	if len(fields) > 0 {
		b, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		tail = " " + string(b)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintf(h.out, "%s [%s] %s%s\n",
		r.Time.Format("2006-01-02 15:04:05.000"),
		r.Level.String(),
		r.Message,
		tail,
	)

	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	return &Handler{
		opts:  h.opts,
		attrs: merged,
		mu:    h.mu,
		out:   h.out,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	// Groups are flattened; the prefix is enough for this service.
	return h.WithAttrs([]slog.Attr{slog.String("group", name)})
}
