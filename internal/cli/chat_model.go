package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/cli/formatter"
)

type chatKeyMap struct {
	Send key.Binding
	Prev key.Binding
	Next key.Binding
	Quit key.Binding
}

var chatKeys = chatKeyMap{
	Send: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Prev: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "history")),
	Next: key.NewBinding(key.WithKeys("down")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

// turnDoneMsg carries the outcome of a chat turn back to the model.
type turnDoneMsg struct {
	resp *assistant.ChatResponse
	err  error
}

// chatModel is the interactive chat. Input is disabled while a turn runs.
type chatModel struct {
	ctx     context.Context
	session *chatSession
	input   textinput.Model
	spin    spinner.Model
	sent    *inputHistory

	messages []string
	busy     bool
}

func newChatModel(ctx context.Context, session *chatSession, sent *inputHistory) *chatModel {
	ti := textinput.New()
	ti.Focus()
	ti.Prompt = ""
	ti.Placeholder = "lunch with Sam tomorrow at noon"
	ti.CharLimit = 1000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = formatter.StylePurple

	if sent == nil {
		sent = newInputHistory("")
	}
	m := &chatModel{ctx: ctx, session: session, input: ti, spin: sp, sent: sent}
	m.messages = append(m.messages, formatter.Header("kalend")+"\n"+
		formatter.Dim("Ask about your calendar. /clear resets the conversation, /quit leaves."))
	return m
}

func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = max(10, msg.Width-12)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, chatKeys.Quit) {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, chatKeys.Send):
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.sent.add(line)
			return m.submit(line)
		case key.Matches(msg, chatKeys.Prev):
			if line, ok := m.sent.prev(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return m, nil
		case key.Matches(msg, chatKeys.Next):
			m.input.SetValue(m.sent.next())
			m.input.CursorEnd()
			return m, nil
		}

	case turnDoneMsg:
		m.busy = false
		m.input.Focus()
		if msg.err != nil {
			m.messages = append(m.messages, formatter.ErrorText("error: "+turnError(msg.err).Error()))
		} else {
			entry := formatter.FormatReply(msg.resp)
			if ops := formatter.FormatOperations(msg.resp.Operations, m.session.app.location()); ops != "" {
				entry += "\n" + strings.TrimRight(ops, "\n")
			}
			m.messages = append(m.messages, entry)
		}
		return m, textinput.Blink

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) submit(line string) (tea.Model, tea.Cmd) {
	var out strings.Builder
	if quit, handled := m.session.command(line, &out); handled {
		if quit {
			return m, tea.Quit
		}
		if s := strings.TrimSpace(out.String()); s != "" {
			m.messages = append(m.messages, s)
		}
		return m, nil
	}

	m.messages = append(m.messages, formatter.Dim("You: ")+line)
	m.busy = true
	m.input.Blur()

	session, ctx := m.session, m.ctx
	run := func() tea.Msg {
		resp, err := session.turn(ctx, line)
		return turnDoneMsg{resp: resp, err: err}
	}
	return m, tea.Batch(m.spin.Tick, run)
}

func (m *chatModel) View() string {
	var b strings.Builder
	for _, msg := range m.messages {
		b.WriteString(msg)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.busy {
		b.WriteString(m.spin.View())
		b.WriteString(formatter.Dim(" Thinking..."))
	} else {
		b.WriteString(formatter.StylePurple.Render("you"))
		b.WriteString(formatter.Dim("> "))
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	var hints []string
	for _, k := range []key.Binding{chatKeys.Send, chatKeys.Prev, chatKeys.Quit} {
		hints = append(hints, k.Help().Key+" "+k.Help().Desc)
	}
	b.WriteString(formatter.Dim(strings.Join(hints, " · ")))
	return b.String()
}
