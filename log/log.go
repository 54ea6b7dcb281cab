package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
)

const (
	ComponentKey = "component"
	ErrorKey     = "error"

	FormatText = "text"
	FormatJSON = "json"
)

// Error returns a slog.Attr for the provided error. The key will be ErrorKey.
func Error(e error) slog.Attr {
	return slog.Any(ErrorKey, e)
}

// sinkHandler forwards records to whichever slog.Handler was most recently passed to To. Loggers returned by
// ForComponent keep working after the sink is replaced, which lets main configure logging after packages have already
// constructed their loggers.
type sinkHandler struct {
	h atomic.Pointer[slog.Handler]
}

func (s *sinkHandler) load() (slog.Handler, bool) {
	h := s.h.Load()
	if h == nil {
		return nil, false
	}

	return *h, true
}

func (s *sinkHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h, ok := s.load()
	return ok && h.Enabled(ctx, level)
}

func (s *sinkHandler) Handle(ctx context.Context, record slog.Record) error {
	h, ok := s.load()
	if !ok {
		return nil
	}

	return h.Handle(ctx, record)
}

func (s *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derivedHandler{sink: s, apply: func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) }}
}

func (s *sinkHandler) WithGroup(name string) slog.Handler {
	return &derivedHandler{sink: s, apply: func(h slog.Handler) slog.Handler { return h.WithGroup(name) }}
}

// derivedHandler re-applies attrs and groups to the current sink on every call so that swapping the sink does not drop
// them.
type derivedHandler struct {
	sink  *sinkHandler
	apply func(slog.Handler) slog.Handler
}

func (d *derivedHandler) current() (slog.Handler, bool) {
	h, ok := d.sink.load()
	if !ok {
		return nil, false
	}

	return d.apply(h), true
}

func (d *derivedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h, ok := d.current()
	return ok && h.Enabled(ctx, level)
}

func (d *derivedHandler) Handle(ctx context.Context, record slog.Record) error {
	h, ok := d.current()
	if !ok {
		return nil
	}

	return h.Handle(ctx, record)
}

func (d *derivedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	parent := d.apply
	return &derivedHandler{sink: d.sink, apply: func(h slog.Handler) slog.Handler { return parent(h).WithAttrs(attrs) }}
}

func (d *derivedHandler) WithGroup(name string) slog.Handler {
	parent := d.apply
	return &derivedHandler{sink: d.sink, apply: func(h slog.Handler) slog.Handler { return parent(h).WithGroup(name) }}
}

var (
	_ slog.Handler = &sinkHandler{}
	_ slog.Handler = &derivedHandler{}
)

var sink = &sinkHandler{}

// To updates all slog.Logger objects used by rfmbridge to write logs to the provided slog.Handler. Until To is called,
// log records are discarded.
func To(h slog.Handler) {
	sink.h.Store(&h)
}

// ForComponent constructs a slog.Logger for the specified component (which is stored in an attribute with the key
// ComponentKey).
func ForComponent(component string) *slog.Logger {
	return slog.New(sink).With(slog.String(ComponentKey, component))
}

// ParseLevel converts a case-insensitive level name into a slog.Level. The empty string maps to slog.LevelInfo.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}

// NewHandler builds a slog.Handler writing to w in the specified format (FormatText or FormatJSON, empty means text).
func NewHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.NewTextHandler(w, opts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (valid: %s, %s)", format, FormatText, FormatJSON)
	}
}
