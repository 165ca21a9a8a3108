package ui

import (
	"context"
	"fmt"
	"io"
	"time"
)

// PlainWatcher prints one line per poll (for CI and pipes).
type PlainWatcher struct {
	out      io.Writer
	interval time.Duration
	poller   Poller
}

// NewPlainWatcher creates a plain line-output watcher.
func NewPlainWatcher(cfg Config, poller Poller) *PlainWatcher {
	cfg = cfg.withDefaults()
	return &PlainWatcher{out: cfg.Output, interval: cfg.Interval, poller: poller}
}

// Watch implements Watcher.
func (w *PlainWatcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	cursor := ""
	for {
		view, err := w.poller.Poll(ctx, cursor)
		if err != nil {
			return err
		}
		cursor = w.render(view, cursor)

		if view.Job.Status.IsTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// render prints the new log lines and the progress line, returning the
// advanced log cursor.
func (w *PlainWatcher) render(view JobView, cursor string) string {
	for _, rec := range view.Logs {
		_, _ = fmt.Fprintf(w.out, "%s [%s] %s\n", rec.Timestamp, rec.Level, rec.Message)
		cursor = rec.Timestamp
	}

	p := view.Job.Progress
	_, _ = fmt.Fprintf(w.out, "[%s] %d/%d indexed=%d failed=%d %s\n",
		view.Job.Status, p.Current, p.Total, p.Indexed, p.Failed, p.Message)

	if view.Job.Status.IsTerminal() && view.Job.Error != "" {
		_, _ = fmt.Fprintf(w.out, "error: %s\n", view.Job.Error)
	}

	return cursor
}
