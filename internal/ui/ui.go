// Package ui renders live job progress for the `jobs watch` command:
// a rich terminal view when stdout is a TTY, plain line output when it
// is piped.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/store"
)

// JobView is one poll snapshot: the durable record plus the log records
// seen since the previous poll.
type JobView struct {
	Job  *store.Job
	Logs []joblog.Record
}

// Poller produces job snapshots. LogsSince receives the cursor of the
// last record already rendered.
type Poller interface {
	Poll(ctx context.Context, sinceLog string) (JobView, error)
}

// Watcher renders snapshots until the job reaches a terminal state or
// the context is cancelled.
type Watcher interface {
	Watch(ctx context.Context) error
}

// DefaultPollInterval between snapshots.
const DefaultPollInterval = 500 * time.Millisecond

// Config configures a watcher.
type Config struct {
	// Output receives the rendering. Defaults to os.Stdout.
	Output io.Writer

	// Interval between polls. Defaults to DefaultPollInterval.
	Interval time.Duration

	// NoColor disables styling in the TTY renderer.
	NoColor bool
}

func (c Config) withDefaults() Config {
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	return c
}

// NewWatcher picks the renderer for the output: interactive when it is
// a terminal, plain otherwise.
func NewWatcher(cfg Config, poller Poller) Watcher {
	cfg = cfg.withDefaults()
	if IsTerminal(cfg.Output) {
		return NewTUIWatcher(cfg, poller)
	}
	return NewPlainWatcher(cfg, poller)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
