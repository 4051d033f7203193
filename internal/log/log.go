package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultRingSize is the number of recent records kept by the default logger.
const DefaultRingSize = 20

// RingHandler is a slog.Handler that keeps the most recent records in memory
// before passing them on.
type RingHandler struct {
	slog.Handler
	ring *ring
}

type ring struct {
	mu   sync.Mutex
	size int
	logs []slog.Record
}

// NewRingHandler creates a new RingHandler keeping up to size records.
func NewRingHandler(handler slog.Handler, size int) *RingHandler {
	return &RingHandler{
		Handler: handler,
		ring:    &ring{size: size},
	}
}

// Handle stores the record and passes it to the wrapped handler.
func (h *RingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.ring.mu.Lock()
	h.ring.logs = append(h.ring.logs, r.Clone())
	if len(h.ring.logs) > h.ring.size {
		h.ring.logs = h.ring.logs[1:]
	}
	h.ring.mu.Unlock()

	return h.Handler.Handle(ctx, r)
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RingHandler{Handler: h.Handler.WithAttrs(attrs), ring: h.ring}
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	return &RingHandler{Handler: h.Handler.WithGroup(name), ring: h.ring}
}

// Logs returns the stored log records, oldest first.
func (h *RingHandler) Logs() []slog.Record {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()
	logs := make([]slog.Record, len(h.ring.logs))
	copy(logs, h.ring.logs)
	return logs
}

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Options configures Init.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// Output receives records at Level and above. Defaults to os.Stderr.
	Output io.Writer
	// File, if set, is truncated and receives every record including debug.
	File string
}

// ParseLevel parses a level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

var defaultHandler *RingHandler

// Init builds the default logger. The returned close function flushes and
// closes the debug file, if any.
func Init(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	closeFn := func() error { return nil }

	if opts.File != "" {
		// Use O_TRUNC to clear the log file on each new run
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = teeHandler{handler, fileHandler}
		closeFn = f.Close
	}

	defaultHandler = NewRingHandler(handler, DefaultRingSize)
	logger := slog.New(defaultHandler)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// Logs returns the stored log records from the default logger.
func Logs() []slog.Record {
	if defaultHandler == nil {
		return nil
	}
	return defaultHandler.Logs()
}
