package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"notes-rag/internal/embedding"
	"notes-rag/internal/index"
	"notes-rag/internal/rag"
	"notes-rag/internal/session"
)

// QueryPort is the TUI-facing subset of the query pipeline.
type QueryPort interface {
	Run(ctx context.Context, query string, k int, systemPrompt, template string) (rag.Answer, error)
}

// Options carries the UI-settable knobs.
type Options struct {
	TopK           int
	SystemPrompt   string
	PromptTemplate string
	RevealChars    int
	RevealPace     time.Duration
}

type answerMsg struct {
	answer rag.Answer
	err    error
}

type revealTickMsg struct{}

// Model is the Bubble Tea model for the chat surface. One Model owns one
// session History; a query is fully answered and revealed before the
// next one is accepted.
type Model struct {
	service QueryPort
	opts    Options

	history *session.History
	reveal  *session.Reveal
	sources []index.Result

	input    textinput.Model
	viewport viewport.Model
	status   string
	k        int
	busy     bool
	ready    bool
}

func New(service QueryPort, opts Options) Model {
	if opts.TopK < 1 || opts.TopK > 10 {
		opts.TopK = 4
	}
	if opts.RevealChars <= 0 {
		opts.RevealChars = 200
	}
	if opts.RevealPace <= 0 {
		opts.RevealPace = 50 * time.Millisecond
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your notes"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		opts:     opts,
		history:  session.New(),
		input:    ti,
		viewport: vp,
		status:   "Ready.",
		k:        opts.TopK,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-chatBoxStyle.GetHorizontalFrameSize())
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if !m.busy {
				m.k = m.k%10 + 1
				m.status = fmt.Sprintf("Retrieving top %d chunks per question.", m.k)
				return m, nil
			}
		case "enter":
			if m.busy {
				return m, nil
			}
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.history.AppendUser(query)
			m.input.Reset()
			m.busy = true
			m.status = "Thinking..."
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, m.answerCmd(query)
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}

	case answerMsg:
		text := msg.answer.Text
		if msg.err != nil {
			text = errorText(msg.err)
			m.sources = nil
		} else {
			m.sources = msg.answer.Results
		}
		m.reveal = m.history.StartAssistant(text, m.opts.RevealChars)
		return m, m.revealTick()

	case revealTickMsg:
		if m.reveal == nil {
			return m, nil
		}
		more := m.reveal.Advance()
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		if more {
			return m, m.revealTick()
		}
		m.reveal = nil
		m.busy = false
		m.status = "Ready."
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("notes-rag chat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status + "  (tab: change k, ctrl+c: quit)")
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) answerCmd(query string) tea.Cmd {
	k := m.k
	return func() tea.Msg {
		answer, err := m.service.Run(context.Background(), query, k, m.opts.SystemPrompt, m.opts.PromptTemplate)
		return answerMsg{answer: answer, err: err}
	}
}

func (m Model) revealTick() tea.Cmd {
	return tea.Tick(m.opts.RevealPace, func(time.Time) tea.Msg {
		return revealTickMsg{}
	})
}

func (m Model) renderHistory() string {
	turns := m.history.Turns()
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch turn.Role {
		case session.RoleUser:
			b.WriteString(userStyle.Render("You: ") + turn.Text)
		case session.RoleAssistant:
			b.WriteString(assistantStyle.Render("Assistant: ") + turn.Text)
			if i == len(turns)-1 && len(m.sources) > 0 && m.reveal == nil {
				b.WriteString("\n" + sourceStyle.Render(formatSources(m.sources)))
			}
		}
	}
	if b.Len() == 0 {
		return "Ask a question about your ingested notes."
	}
	return b.String()
}

func formatSources(results []index.Result) string {
	var parts []string
	seen := make(map[string]bool)
	for _, r := range results {
		label := r.Meta["source"]
		if page := r.Meta["page"]; page != "" && page != "1" {
			label += " (p." + page + ")"
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Sources: " + strings.Join(parts, ", ")
}

func errorText(err error) string {
	switch {
	case errors.Is(err, index.ErrUnavailable):
		return "The system is not ready: no vector index could be loaded. Run ingestion first."
	case errors.Is(err, embedding.ErrUnavailable):
		return "The embedding model is unavailable, so this question could not be processed. Please try again."
	default:
		return "Something went wrong answering this question: " + err.Error()
	}
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
