package joblog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Logger returns a job-scoped logger. Every record is appended to the
// job's ring buffer and forwarded to base with a job_id attribute, so
// executors log once and both the poll surface and the service log see
// it.
func (a *Aggregator) Logger(jobID string, base *slog.Logger) *slog.Logger {
	var next slog.Handler
	if base != nil {
		next = base.Handler()
	}
	return slog.New(&teeHandler{agg: a, jobID: jobID, next: next})
}

// teeHandler duplicates records into a ring buffer before forwarding.
type teeHandler struct {
	agg   *Aggregator
	jobID string
	next  slog.Handler
	attrs []slog.Attr
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelInfo {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		h.agg.Append(h.jobID, Record{
			Timestamp: r.Time.Format(time.RFC3339Nano),
			Level:     r.Level.String(),
			Message:   h.renderMessage(r),
			JobID:     h.jobID,
		})
	}

	if h.next == nil || !h.next.Enabled(ctx, r.Level) {
		return nil
	}

	forwarded := r.Clone()
	forwarded.AddAttrs(slog.String("job_id", h.jobID))
	return h.next.Handle(ctx, forwarded)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return &clone
}

// renderMessage flattens the message and attrs into one poll-friendly
// line: "indexing publication id=42 indexed=10".
func (h *teeHandler) renderMessage(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, attr := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
	}
	r.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
		return true
	})
	return b.String()
}
