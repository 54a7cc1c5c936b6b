// Package tui is the interactive note browser: type to filter, arrows
// to move, enter to read. Search goes through the same index the search
// command uses, so results match it exactly.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kavinsood/kite/internal/cli/index"
	"github.com/kavinsood/kite/internal/cli/model"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	normalStyle   = lipgloss.NewStyle()
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginTop(1)
)

// NoteSource supplies the current note list.
type NoteSource interface {
	Notes() []model.Note
}

// ContentFn resolves a note id to its full content.
type ContentFn func(ctx context.Context, id string) (string, error)

type mode int

const (
	modeBrowse mode = iota
	modeRead
)

type Model struct {
	source  NoteSource
	index   *index.Index
	content ContentFn

	input   textinput.Model
	view    viewport.Model
	results []model.Note
	cursor  int
	mode    mode
	width   int
	height  int
	err     error
}

func NewModel(source NoteSource, ix *index.Index, content ContentFn) Model {
	input := textinput.New()
	input.Placeholder = "type to search"
	input.Prompt = "/ "
	input.Focus()

	m := Model{
		source:  source,
		index:   ix,
		content: content,
		input:   input,
	}
	m.results = source.Notes()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeRead {
			return m.updateRead(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateRead(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.mode = modeBrowse
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.openSelected()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refilter()
	return m, cmd
}

func (m *Model) refilter() {
	query := m.input.Value()
	if strings.TrimSpace(query) == "" {
		m.results = m.source.Notes()
	} else {
		m.results = m.index.SearchWithPositions(query, m.source.Notes())
	}
	if m.cursor >= len(m.results) {
		m.cursor = 0
	}
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.results) {
		return m, nil
	}
	note := m.results[m.cursor]
	content, err := m.content(context.Background(), note.ID)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.view.SetContent(content)
	m.view.GotoTop()
	m.mode = modeRead
	return m, nil
}

func (m Model) View() string {
	if m.mode == modeRead {
		return m.view.View() + "\n" + helpStyle.Render("q/esc back · arrows scroll")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("kite"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(metaStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}
	if len(m.results) == 0 {
		b.WriteString(metaStyle.Render("no matches"))
		b.WriteString("\n")
	}
	visible := m.visibleRows()
	for i, n := range m.results {
		if i >= visible {
			b.WriteString(metaStyle.Render(fmt.Sprintf("… %d more", len(m.results)-visible)))
			b.WriteString("\n")
			break
		}
		line := fmt.Sprintf("%-40s %s", truncate(n.Title, 40), metaStyle.Render(n.Preview))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter read · arrows move · esc quit"))
	return b.String()
}

func (m Model) visibleRows() int {
	if m.height == 0 {
		return 20
	}
	rows := m.height - 5
	if rows < 1 {
		rows = 1
	}
	return rows
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// Run starts the browser in the alternate screen.
func Run(source NoteSource, ix *index.Index, content ContentFn) error {
	p := tea.NewProgram(NewModel(source, ix, content), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
