package main

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
	caddie "github.com/koscakluka/ema-caddie/core"
	"github.com/koscakluka/ema-caddie/core/golf"
	"github.com/muesli/reflow/wordwrap"
)

const finishTimeout = 10 * time.Second

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#2E7D32")).Padding(0, 1)
	caddieStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#66BB6A"))
	playerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#42A5F5"))
	learningStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FFCA28"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9E9E9E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF5350"))
	listeningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF5350"))
)

type model struct {
	ctx     context.Context
	session *caddie.Session

	viewport viewport.Model
	input    textinput.Model
	ready    bool
	width    int

	messages  []golf.ChatMessage
	hole      golf.Hole
	round     golf.Round
	turn      caddie.TurnState
	listening bool
	finished  bool

	status  string
	failure bool
}

func newModel(ctx context.Context, session *caddie.Session) model {
	input := textinput.New()
	input.Placeholder = "Tell your caddie about the shot..."
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	return model{
		ctx:     ctx,
		session: session,
		input:   input,
		status:  "enter send · ctrl+r listen · ctrl+v voice · ctrl+e finish · esc quit",
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		height := max(3, msg.Height-4)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.finished || strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.session.SetInput(m.input.Value())
			m.setStatus("Thinking...", false)
			return m, m.sendInput()
		case tea.KeyCtrlR:
			return m, m.toggleListening()
		case tea.KeyCtrlV:
			enabled := !m.session.IsVoiceEnabled()
			m.session.SetVoiceEnabled(enabled)
			m.setStatus(fmt.Sprintf("Voice %s", onOff(enabled)), false)
			return m, nil
		case tea.KeyCtrlE:
			if m.finished {
				return m, nil
			}
			m.setStatus("Finishing round...", false)
			return m, m.finish()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case messageMsg:
		m.messages = append(m.messages, msg.msg)
		m.refresh()
		return m, nil

	case turnStateMsg:
		m.turn = msg.state
		return m, nil

	case holeMsg:
		m.hole = msg.hole
		return m, nil

	case roundMsg:
		m.round = msg.round
		return m, nil

	case inputMsg:
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
		return m, nil

	case listeningMsg:
		m.listening = msg.isListening
		return m, nil

	case sendResultMsg:
		switch {
		case msg.err == nil:
			m.setStatus("", false)
		case errors.Is(msg.err, caddie.ErrTurnInProgress):
			m.setStatus("Still waiting on your caddie.", true)
		case errors.Is(msg.err, caddie.ErrAssistantUnavailable):
			m.setStatus("Your caddie didn't answer. Press enter to try again.", true)
		default:
			m.setStatus(msg.err.Error(), true)
		}
		return m, nil

	case listenResultMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		}
		return m, nil

	case finishedMsg:
		if errors.Is(msg.err, caddie.ErrSessionFinished) {
			return m, nil
		}
		m.finished = true
		m.round = msg.round
		m.input.Blur()
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Round finished at %d, but saving failed: %v", msg.round.TotalScore, msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Round finished. Total %d. Press esc to leave.", msg.round.TotalScore), false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header()))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) header() string {
	title := m.session.Course().Name
	if m.hole.HoleNumber > 0 {
		title += fmt.Sprintf(" · Hole %d · Par %d · %d yds", m.hole.HoleNumber, m.hole.Par, m.hole.Yardage)
	}
	if performance, ok := m.round.Performance(m.hole.HoleNumber); ok {
		title += fmt.Sprintf(" · %d shot(s)", len(performance.Shots))
	}
	if total := m.round.SumScores(); total > 0 {
		title += fmt.Sprintf(" · Total %d", total)
	}
	return title
}

func (m model) statusLine() string {
	var parts []string
	if m.listening {
		parts = append(parts, listeningStyle.Render("● listening"))
	}
	if m.turn == caddie.TurnAwaitingResponse {
		parts = append(parts, statusStyle.Render("caddie is thinking"))
	}
	if m.status != "" {
		style := statusStyle
		if m.failure {
			style = errorStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	return strings.Join(parts, "  ")
}

func (m *model) setStatus(status string, failure bool) {
	m.status = status
	m.failure = failure
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderMessages(m.messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func renderMessages(messages []golf.ChatMessage, width int) string {
	width = max(20, width-2)

	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		label := playerStyle.Render("You")
		if msg.Sender == golf.SenderAssistant {
			label = caddieStyle.Render("Caddie")
		}

		block := label + "\n" + wordwrap.String(msg.Text, width)
		if msg.Learning != "" {
			block += "\n" + learningStyle.Render("✓ "+msg.Learning)
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

func (m model) sendInput() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return sendResultMsg{err: session.SendInput(ctx)}
	}
}

func (m model) toggleListening() tea.Cmd {
	ctx, session, listening := m.ctx, m.session, m.listening
	return func() tea.Msg {
		if listening {
			return listenResultMsg{err: session.StopListening()}
		}
		return listenResultMsg{err: session.StartListening(ctx)}
	}
}

func (m model) finish() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, finishTimeout)
		defer cancel()
		round, err := session.Finish(ctx)
		return finishedMsg{round: round, err: err}
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
