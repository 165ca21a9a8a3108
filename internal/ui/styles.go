package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/licindex/licindex/internal/store"
)

// Styles holds the lipgloss styles of the watch view.
type Styles struct {
	Frame    lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Log      lipgloss.Style
	Error    lipgloss.Style
	statuses map[store.JobStatus]lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
		Title: lipgloss.NewStyle().Bold(true),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Log:   lipgloss.NewStyle().Faint(true),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		statuses: map[store.JobStatus]lipgloss.Style{
			store.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
			store.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			store.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			store.StatusStopped:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		},
	}
}

// NoColorStyles returns unstyled equivalents.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Frame: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		Title: plain,
		Label: plain,
		Log:   plain,
		Error: plain,
		statuses: map[store.JobStatus]lipgloss.Style{
			store.StatusRunning:   plain,
			store.StatusCompleted: plain,
			store.StatusFailed:    plain,
			store.StatusStopped:   plain,
		},
	}
}

// Status returns the style for a job status.
func (s Styles) Status(status store.JobStatus) lipgloss.Style {
	if st, ok := s.statuses[status]; ok {
		return st
	}
	return lipgloss.NewStyle()
}
