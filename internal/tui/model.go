// Package tui holds the terminal surfaces: a full-screen bubbletea chat and a
// line-oriented fallback for pipes and dumb terminals.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"chatbot/internal/domain"
	"chatbot/internal/usecase"
)

// Submitter runs one chat exchange against a session.
type Submitter interface {
	Submit(ctx context.Context, sess usecase.SessionState, text string) (usecase.Exchange, error)
}

// Session is the conversation a Model submits to and renders.
// *repository.Session satisfies it.
type Session interface {
	usecase.SessionState
	Len() int
}

type replyMsg struct {
	exchange usecase.Exchange
	err      error
}

// chrome is the number of lines around the viewport: title, hint, frame,
// status and input.
const chrome = 8

type Model struct {
	ctx      context.Context
	chat     Submitter
	session  Session
	provider string

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   styles

	busy   bool
	ready  bool
	notice string
	// rendered is the number of turns in the viewport content.
	rendered int
}

func New(ctx context.Context, chat Submitter, sess Session, provider string) Model {
	in := textinput.New()
	in.Placeholder = Placeholder
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		chat:     chat,
		session:  sess,
		provider: provider,
		input:    in,
		spinner:  sp,
		styles:   defaultStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.session.Len() != m.rendered {
			m.refresh()
		}
		return m, cmd

	case replyMsg:
		m.busy = false
		m.notice = ""
		if msg.err != nil {
			m.notice = fmt.Sprintf("message not sent: %s", usecase.CodeOf(msg.err))
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// submit ignores blank input and any Enter while a reply is pending.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.busy = true
	m.notice = ""
	m.refresh()

	ctx, chat, sess := m.ctx, m.chat, m.session
	send := func() tea.Msg {
		ex, err := chat.Submit(ctx, sess, text)
		return replyMsg{exchange: ex, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, send)
}

func (m *Model) resize(width, height int) {
	width = max(width, 24)
	vpHeight := max(height-chrome, 3)
	if !m.ready {
		m.viewport = viewport.New(width-4, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width - 4
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-8)); err == nil {
		m.renderer = r
	}
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	turns := m.session.All()
	m.viewport.SetContent(m.render(turns))
	m.viewport.GotoBottom()
	m.rendered = len(turns)
}

// render formats committed turns. While a reply is pending the spinner tick
// picks up the user turn as soon as it is appended.
func (m Model) render(turns []domain.Turn) string {
	md := Markdown(turns)
	if m.renderer == nil || md == "" {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render(Title))
	b.WriteString("\n")
	b.WriteString(m.styles.hint.Render(fmt.Sprintf("provider: %s  enter to send, esc to quit", m.provider)))
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.styles.frame.Render(m.viewport.View()))
	} else {
		b.WriteString(m.render(m.session.All()))
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(m.styles.status.Render(m.spinner.View() + " " + BusyText))
	case m.notice != "":
		b.WriteString(m.styles.notice.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

// Markdown renders turns with bold role labels, one paragraph per turn.
func Markdown(turns []domain.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(label(t.Role))
		b.WriteString(" ")
		b.WriteString(t.Content)
	}
	return b.String()
}

func label(r domain.Role) string {
	if r == domain.RoleUser {
		return labelUser
	}
	return labelAssistant
}

// Run starts the full-screen chat and blocks until the user quits.
func Run(ctx context.Context, chat Submitter, sess Session, provider string, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(
		New(ctx, chat, sess, provider),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
