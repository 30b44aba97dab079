// Package tui provides the interactive dry-run report viewer.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/patchvet/patchvet/internal/apply"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cursorStyle = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	helpStyle   = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// Model pages through the per-file results of a report: a selectable file
// list above, the selected file's diagnostics in a viewport below.
type Model struct {
	report   *apply.Report
	cursor   int
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// New creates a viewer for the report.
func New(r *apply.Report) Model {
	return Model{report: r}
}

// Run shows the viewer until the user quits.
func Run(r *apply.Report) error {
	_, err := tea.NewProgram(New(r), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := len(m.report.Files) + 2
		if max := m.height / 2; listHeight > max {
			listHeight = max
		}
		vpHeight := m.height - listHeight - 3
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.detail())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.viewport.SetContent(m.detail())
				m.viewport.GotoTop()
			}
		case "down", "j":
			if m.cursor < len(m.report.Files)-1 {
				m.cursor++
				m.viewport.SetContent(m.detail())
				m.viewport.GotoTop()
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "loading report..."
	}

	var b strings.Builder
	mode := "apply"
	if m.report.DryRun {
		mode = "dry run"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("patchvet %s: %d file(s)", mode, len(m.report.Files))))
	b.WriteString("\n\n")

	for i, f := range m.report.Files {
		line := marker(f) + " " + f.Path
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString(helpStyle.Render("\n↑/↓ select file · pgup/pgdn scroll · q quit"))
	return b.String()
}

func marker(f apply.FileReport) string {
	switch f.Outcome {
	case apply.OutcomeClean:
		return okStyle.Render("✓")
	case apply.OutcomeOffset:
		return warnStyle.Render("~")
	}
	return failStyle.Render("✗")
}

// detail renders the diagnostics panel for the selected file.
func (m Model) detail() string {
	if len(m.report.Files) == 0 {
		return faintStyle.Render("empty report")
	}
	f := m.report.Files[m.cursor]

	var b strings.Builder
	fmt.Fprintf(&b, "file:    %s\n", f.Path)
	fmt.Fprintf(&b, "outcome: %s\n", f.Outcome)
	if f.Offset != 0 {
		fmt.Fprintf(&b, "offset:  %+d lines from declared position\n", f.Offset)
	}
	if f.Fuzz > 0 {
		fmt.Fprintf(&b, "fuzz:    matched at whitespace tolerance level %d\n", f.Fuzz)
	}
	if f.Err != nil {
		b.WriteString("\n")
		b.WriteString(failStyle.Render(f.Err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}
