package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/store"
)

// logTailLines is how many recent log lines the view keeps on screen.
const logTailLines = 10

// TUIWatcher renders a live bubbletea view of one job.
type TUIWatcher struct {
	cfg    Config
	poller Poller
}

// NewTUIWatcher creates the interactive watcher.
func NewTUIWatcher(cfg Config, poller Poller) *TUIWatcher {
	return &TUIWatcher{cfg: cfg.withDefaults(), poller: poller}
}

// Watch implements Watcher. It blocks until the job reaches a terminal
// state, the user quits, or the context is cancelled.
func (w *TUIWatcher) Watch(ctx context.Context) error {
	m := newWatchModel(w.cfg, w.poller)

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(w.cfg.Output)}
	prog := tea.NewProgram(m, opts...)

	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(watchModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// pollMsg carries one snapshot into the update loop.
type pollMsg struct {
	view JobView
	err  error
}

type watchModel struct {
	poller   Poller
	interval time.Duration
	styles   Styles

	spinner  spinner.Model
	progress progress.Model

	view    JobView
	tail    []joblog.Record
	cursor  string
	polled  bool
	err     error
	quitted bool
}

func newWatchModel(cfg Config, poller Poller) watchModel {
	styles := DefaultStyles()
	if cfg.NoColor {
		styles = NoColorStyles()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return watchModel{
		poller:   poller,
		interval: cfg.Interval,
		styles:   styles,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollNow())
}

// pollNow fetches a snapshot immediately.
func (m watchModel) pollNow() tea.Cmd {
	poller, cursor := m.poller, m.cursor
	return func() tea.Msg {
		view, err := poller.Poll(context.Background(), cursor)
		return pollMsg{view: view, err: err}
	}
}

// pollLater fetches the next snapshot after the interval.
func (m watchModel) pollLater() tea.Cmd {
	poller, cursor := m.poller, m.cursor
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		view, err := poller.Poll(context.Background(), cursor)
		return pollMsg{view: view, err: err}
	})
}

// Update implements tea.Model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitted = true
			return m, tea.Quit
		}
		return m, nil

	case pollMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.view = msg.view
		m.polled = true
		for _, rec := range msg.view.Logs {
			m.tail = append(m.tail, rec)
			m.cursor = rec.Timestamp
		}
		if len(m.tail) > logTailLines {
			m.tail = m.tail[len(m.tail)-logTailLines:]
		}
		if msg.view.Job.Status.IsTerminal() {
			return m, tea.Quit
		}
		return m, m.pollLater()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m watchModel) View() string {
	if !m.polled {
		return m.spinner.View() + " loading job..."
	}

	job := m.view.Job
	p := job.Progress

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("job %s", job.ID)))
	b.WriteString("\n")
	b.WriteString(m.styles.Label.Render("type   "))
	b.WriteString(string(job.Type))
	b.WriteString("\n")

	b.WriteString(m.styles.Label.Render("status "))
	b.WriteString(m.styles.Status(job.Status).Render(string(job.Status)))
	if job.Status == store.StatusRunning {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")

	if p.Total > 0 {
		b.WriteString(m.progress.ViewAs(float64(p.Current) / float64(p.Total)))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("%d/%d indexed=%d failed=%d", p.Current, p.Total, p.Indexed, p.Failed))
	if p.Message != "" {
		b.WriteString("  " + p.Message)
	}
	b.WriteString("\n")

	if job.Error != "" {
		b.WriteString(m.styles.Error.Render("error: " + job.Error))
		b.WriteString("\n")
	}

	if len(m.tail) > 0 {
		b.WriteString("\n")
		for _, rec := range m.tail {
			b.WriteString(m.styles.Log.Render(fmt.Sprintf("%s %s", rec.Timestamp, rec.Message)))
			b.WriteString("\n")
		}
	}

	return m.styles.Frame.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}
