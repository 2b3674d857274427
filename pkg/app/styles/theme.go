package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary = lipgloss.Color("#FF6B9D")
	Success = lipgloss.Color("#C3E88D")
	Error   = lipgloss.Color("#F07178")
	Muted   = lipgloss.Color("#546E7A")
)

var (
	// Title style for headings
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	// Muted/dimmed text
	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	StatusSynced = lipgloss.NewStyle().
			Foreground(Success)

	StatusError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SummaryStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	// Table styles for the status command
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(Primary).
				Bold(true).
				Align(lipgloss.Center)

	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)
