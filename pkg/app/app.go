package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/klinge/mangadex-anilist-sync/pkg/app/styles"
	"github.com/klinge/mangadex-anilist-sync/pkg/services"
)

// App runs a sync pass with a live per-title view.
type App struct {
	manager *services.SyncManager
}

func NewApp(manager *services.SyncManager) *App {
	return &App{manager: manager}
}

func (a *App) Run() error {
	model := newSyncModel(a.manager)
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

type progressMsg services.SyncProgress

type channelClosedMsg struct{}

type syncDoneMsg struct {
	summary services.Summary
}

type syncModel struct {
	manager *services.SyncManager
	spinner spinner.Model

	updates []services.SyncProgress
	summary *services.Summary
	closed  bool
}

func newSyncModel(manager *services.SyncManager) *syncModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle
	return &syncModel{manager: manager, spinner: sp}
}

// runSync executes the sync pass off the UI loop.
func runSync(manager *services.SyncManager) tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{summary: manager.Sync()}
	}
}

// waitForProgress reads one update from the progress channel. The closed
// message only arrives once every buffered update has been consumed.
func waitForProgress(ch <-chan services.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return progressMsg(update)
	}
}

func (m *syncModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		runSync(m.manager),
		waitForProgress(m.manager.ProgressChannel()),
	)
}

func (m *syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.updates = append(m.updates, services.SyncProgress(msg))
		return m, waitForProgress(m.manager.ProgressChannel())

	case channelClosedMsg:
		m.closed = true
		if m.summary != nil {
			return m, tea.Quit
		}
		return m, nil

	case syncDoneMsg:
		summary := msg.summary
		m.summary = &summary
		if m.closed {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *syncModel) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Syncing reading progress"))
	b.WriteString("\n")

	for _, update := range m.updates {
		line := fmt.Sprintf("%s → chapter %s", update.Title, update.Chapter)
		switch update.Status {
		case services.StatusSynced:
			b.WriteString(styles.StatusSynced.Render("✓ " + line))
		default:
			if update.Err != nil {
				line = fmt.Sprintf("%s (%s)", line, update.Err)
			}
			b.WriteString(styles.StatusError.Render("✗ " + line))
		}
		b.WriteString("\n")
	}

	if m.summary == nil {
		b.WriteString(m.spinner.View())
		b.WriteString(styles.MutedStyle.Render(" fetching..."))
		b.WriteString("\n")
		return b.String()
	}

	s := m.summary
	if s.Err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error fetching MangaDex progress: %v", s.Err)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(styles.SummaryStyle.Render(
		fmt.Sprintf("Done: %d titles, %d synced, %d errors in %s", s.Total, s.Pushed, s.Errors, s.Duration.Round(10*time.Millisecond)),
	))
	b.WriteString("\n")
	return b.String()
}
