package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/testutil"
)

var testNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

// stubChat answers every turn with reply and records the requests.
type stubChat struct {
	mu       sync.Mutex
	reply    string
	ops      []assistant.OperationResult
	err      error
	requests []assistant.ChatRequest
}

func (s *stubChat) Turn(_ context.Context, req assistant.ChatRequest) (*assistant.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	history := append(append([]domain.Turn(nil), req.History...),
		domain.NewTurn(domain.RoleUser, req.Message),
		domain.NewTurn(domain.RoleModel, s.reply),
	)
	return &assistant.ChatResponse{
		Response:   s.reply,
		Operations: s.ops,
		History:    history,
		SessionID:  req.SessionID,
	}, nil
}

func (s *stubChat) calls() []assistant.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]assistant.ChatRequest(nil), s.requests...)
}

// stubCalls returns result for every call and records them.
type stubCalls struct {
	result assistant.FunctionResult
	calls  []assistant.FunctionCall
	users  []string
}

func (s *stubCalls) Call(_ context.Context, userID string, fc assistant.FunctionCall) assistant.FunctionResult {
	s.calls = append(s.calls, fc)
	s.users = append(s.users, userID)
	return s.result
}

type memCreds struct {
	saved []domain.Credential
}

func (m *memCreds) Upsert(_ context.Context, c *domain.Credential) error {
	m.saved = append(m.saved, *c)
	return nil
}

func testApp(chat *stubChat, calls *stubCalls) *App {
	return &App{
		Chat:        chat,
		Calls:       calls,
		Credentials: &memCreds{},
		UserID:      "alice",
		Location:    time.UTC,
		Now:         func() time.Time { return testNow },
	}
}

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func configuredOAuth() auth.OAuthConfig {
	cfg := auth.DefaultConfig()
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	return cfg
}

func fakeExchange(got *string) func(context.Context, auth.OAuthConfig, string, string) (domain.Credential, error) {
	return func(_ context.Context, _ auth.OAuthConfig, userID, code string) (domain.Credential, error) {
		*got = code
		if code == "bad" {
			return domain.Credential{}, &auth.AuthError{UserID: userID, Err: errors.New("invalid_grant")}
		}
		return *testutil.NewTestCredential(userID), nil
	}
}
