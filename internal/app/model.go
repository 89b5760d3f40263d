package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Rorical/farmchat/internal/dispatcher"
	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/internal/update"
	"github.com/Rorical/farmchat/ui/components"
)

// AppModel is the bubbletea model. UI-only state lives here; session state
// arrives from the core as snapshots.
type AppModel struct {
	appModel      models.AppModel
	input         textinput.Model
	spinner       spinner.Model
	markdown      *components.MarkdownRenderer
	markdownStyle string
	dispatcher    *dispatcher.EventDispatcher
}

// NewAppModel creates the model. markdownStyle is a glamour style name; empty
// detects one from the terminal.
func NewAppModel(disp *dispatcher.EventDispatcher, markdownStyle string) *AppModel {
	in := textinput.New()
	in.Placeholder = "Ask about your farm, or press enter on a suggestion"
	in.Prompt = "> "
	in.Focus()
	in.CharLimit = 0
	in.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	return &AppModel{
		appModel: models.AppModel{
			Session: models.Snapshot{TranslatingIndex: -1},
			Status:  update.StatusLoading,
			Width:   80,
		},
		input:         in,
		spinner:       s,
		markdown:      components.NewMarkdownRenderer(76, markdownStyle),
		markdownStyle: markdownStyle,
		dispatcher:    disp,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.dispatcher.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatcher.CoreEventMsg:
		update.HandleCoreEvent(&m.appModel, msg)
		return m, m.dispatcher.ListenForCoreEvents()

	case dispatcher.BusClosedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		update.HandleWindowSizeMsg(&m.appModel, msg)
		m.input.Width = max(msg.Width-8, 10)
		if width := max(msg.Width-4, 20); width != m.markdown.Width() {
			m.markdown = components.NewMarkdownRenderer(width, m.markdownStyle)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		res := update.HandleKeyMsg(&m.appModel, msg, m.input.Value(), m.dispatcher)
		if res.ClearInput {
			m.input.Reset()
		}
		if res.Handled {
			return m, res.Cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *AppModel) View() string {
	var b strings.Builder
	session := m.appModel.Session

	b.WriteString(components.RenderMessages(session.Turns, m.markdown))
	b.WriteString(components.RenderSuggestions(session, m.appModel.Selected, m.spinner.View()))
	b.WriteString("\n")
	b.WriteString(components.RenderInput(m.input.View(), m.appModel.Width))
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.appModel.Status, session.Language, session.Busy(), m.spinner.View(), m.appModel.Width))

	return b.String()
}
