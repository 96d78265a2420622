package tui

import "github.com/charmbracelet/lipgloss"

var (
	Accent      = lipgloss.Color("#D32323")
	Foreground  = lipgloss.Color("#f2f2f2")
	Muted       = lipgloss.Color("#8a8f98")
	Border      = lipgloss.Color("#3a3f4b")
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
)

// Styles holds the rendering styles shared by every page.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Menu     lipgloss.Style
	Active   lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Status   lipgloss.Style
	Card     lipgloss.Style
	Selected lipgloss.Style
	Heart    lipgloss.Style
	Comment  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Header: lipgloss.NewStyle().Bold(true).Foreground(Foreground).MarginBottom(1),
		Menu:   lipgloss.NewStyle().Foreground(Muted),
		Active: lipgloss.NewStyle().Bold(true).Foreground(Accent).Underline(true),
		Label:  lipgloss.NewStyle().Bold(true).Width(12),
		Muted:  lipgloss.NewStyle().Foreground(Muted),
		Error:  lipgloss.NewStyle().Foreground(Destructive),
		Status: lipgloss.NewStyle().Foreground(Success),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent).
			Padding(0, 1),
		Heart:   lipgloss.NewStyle().Foreground(Accent),
		Comment: lipgloss.NewStyle().PaddingLeft(2).Foreground(Foreground),
	}
}
