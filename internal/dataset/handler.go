package dataset

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// timeFormat is the layout of the "time" field of every exported line.
const timeFormat = "2006-01-02 15:04:05"

// lineHandler is a slog handler writing one flat JSON object per record (JSONL): the record time,
// the handler attributes, then the record attributes. Level and message are not written.
type lineHandler struct {
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

// newLineHandler creates a handler writing to out.
func newLineHandler(out io.Writer) *lineHandler {
	return &lineHandler{out: out, mu: &sync.Mutex{}}
}

// Handle serializes r as a single JSON line.
func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs()+1)
	fields["time"] = r.Time.Format(timeFormat)

	add := func(a slog.Attr) bool {
		if a.Key != "" && a.Value.Any() != nil {
			fields[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(append(data, '\n'))
	return err
}

// WithAttrs returns a handler that writes attrs on every line.
func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lineHandler{
		out:   h.out,
		mu:    h.mu,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup is not supported: lines stay flat.
func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}

// Enabled accepts every level.
func (h *lineHandler) Enabled(context.Context, slog.Level) bool {
	return true
}
