package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/cli/formatter"
	"github.com/alexanderramin/kalend/internal/domain"
)

func newChatCmd(app *App) *cobra.Command {
	var sessionID, personality string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the calendar assistant",
		Long: "Start an interactive conversation. Type /quit to leave and /clear to\n" +
			"forget the conversation so far. When stdin is not a terminal each input\n" +
			"line is sent as one message.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireChat(); err != nil {
				return err
			}
			s := &chatSession{
				app:         app,
				sessionID:   sessionID,
				personality: domain.CoalesceStr(personality, app.Personality),
			}
			if !app.Interactive {
				return s.runLines(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			}
			m := newChatModel(cmd.Context(), s, newInputHistory(app.InputHistoryPath))
			p := tea.NewProgram(m, tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to continue a stored conversation")
	addPersonalityFlag(cmd, &personality)
	return cmd
}

// chatSession carries conversation state across turns.
type chatSession struct {
	app         *App
	sessionID   string
	personality string
	history     []domain.Turn
}

// turn sends one message. Without a session id the local history is
// replayed; with one the server-side history is used.
func (s *chatSession) turn(ctx context.Context, message string) (*assistant.ChatResponse, error) {
	req := assistant.ChatRequest{
		UserID:      s.app.UserID,
		Message:     message,
		SessionID:   s.sessionID,
		Personality: s.personality,
	}
	if s.sessionID == "" {
		req.History = s.history
	}
	resp, err := s.app.Chat.Turn(ctx, req)
	if err != nil {
		return nil, err
	}
	s.history = resp.History
	return resp, nil
}

func (s *chatSession) reset() { s.history = nil }

// runLines is the non-interactive chat loop.
func (s *chatSession) runLines(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if quit, handled := s.command(line, out); handled {
			if quit {
				return nil
			}
			continue
		}
		resp, err := s.turn(ctx, line)
		if err != nil {
			fmt.Fprintln(out, formatter.ErrorText("error: "+turnError(err).Error()))
			continue
		}
		printTurn(out, resp, s.app.location())
	}
	return sc.Err()
}

// command handles slash commands. quit reports a request to leave.
func (s *chatSession) command(line string, out io.Writer) (quit, handled bool) {
	switch strings.ToLower(line) {
	case "/quit", "/exit", "/q":
		return true, true
	case "/clear":
		s.reset()
		fmt.Fprintln(out, formatter.Dim("Conversation cleared."))
		return false, true
	}
	return false, false
}
