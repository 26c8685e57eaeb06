package cli

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/llm"
)

func TestAsk_PrintsReplyAndOperations(t *testing.T) {
	chat := &stubChat{
		reply: "Booked lunch with Sam.",
		ops: []assistant.OperationResult{{
			Type:    assistant.OpCreate,
			Success: true,
			Events:  []assistant.ItemResult{{Summary: "Lunch with Sam", Start: "2025-06-11T12:00:00Z", Success: true}},
		}},
	}
	app := testApp(chat, &stubCalls{})

	out, err := runCmd(t, app, "", "ask", "lunch", "with", "Sam", "tomorrow", "-p", "witty", "-s", "sess-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Booked lunch with Sam.")
	assert.Contains(t, out, "CREATE")
	assert.Contains(t, out, "Wed Jun 11, 12:00 PM")

	reqs := chat.calls()
	require.Len(t, reqs, 1)
	assert.Equal(t, "lunch with Sam tomorrow", reqs[0].Message)
	assert.Equal(t, "alice", reqs[0].UserID)
	assert.Equal(t, "witty", reqs[0].Personality)
	assert.Equal(t, "sess-1", reqs[0].SessionID)
}

func TestAsk_UserFlagAndDefaultPersonality(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	app := testApp(chat, &stubCalls{})
	app.Personality = "minimalist"

	_, err := runCmd(t, app, "", "--user", "bob", "ask", "what's on today")
	require.NoError(t, err)

	reqs := chat.calls()
	require.Len(t, reqs, 1)
	assert.Equal(t, "bob", reqs[0].UserID)
	assert.Equal(t, "minimalist", reqs[0].Personality)
}

func TestAsk_TurnErrorGetsHint(t *testing.T) {
	app := testApp(&stubChat{err: assistant.ErrEmptyMessage}, &stubCalls{})

	_, err := runCmd(t, app, "", "ask", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, assistant.ErrEmptyMessage)
	assert.Contains(t, err.Error(), "kalend ask")
}

func TestAsk_FailedTurnIsPrinted(t *testing.T) {
	chat := &stubChat{reply: "Sorry, I didn't understand that request. Could you rephrase it?"}
	app := testApp(chat, &stubCalls{})

	out, err := runCmd(t, app, "", "ask", "blorp")
	require.NoError(t, err)
	assert.Contains(t, out, "didn't understand")
}

func TestCall_PrintsResultJSON(t *testing.T) {
	calls := &stubCalls{result: assistant.FunctionResult{Success: true, Data: map[string]bool{"deleted": true}}}
	app := testApp(&stubChat{}, calls)

	out, err := runCmd(t, app, "", "call", assistant.FnDeleteEvent, `{"eventId":"e1"}`)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["success"])
	require.Len(t, calls.calls, 1)
	assert.Equal(t, assistant.FnDeleteEvent, calls.calls[0].Name)
	assert.JSONEq(t, `{"eventId":"e1"}`, string(calls.calls[0].Args))
	assert.Equal(t, []string{"alice"}, calls.users)
}

func TestCall_RejectsInvalidJSON(t *testing.T) {
	calls := &stubCalls{}
	app := testApp(&stubChat{}, calls)

	_, err := runCmd(t, app, "", "call", assistant.FnCreateEvent, `{not json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
	assert.Empty(t, calls.calls)
}

func TestCall_FailureReturnsError(t *testing.T) {
	calls := &stubCalls{result: assistant.FunctionResult{Success: false, Error: "unknown function"}}
	app := testApp(&stubChat{}, calls)

	out, err := runCmd(t, app, "", "call", "launchRockets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launchRockets failed: unknown function")
	assert.Contains(t, out, `"success": false`)
	assert.Nil(t, calls.calls[0].Args)
}

func eventsFixture() []domain.Event {
	return []domain.Event{{
		ID:      "evt1",
		Summary: "Dentist",
		Start:   domain.EventTime{DateTime: "2025-06-12T15:00:00Z"},
		End:     domain.EventTime{DateTime: "2025-06-12T16:00:00Z"},
	}}
}

func TestEvents_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"EVENTS", "Dentist", "3:00 PM", "(1h)"}},
		{"json", []string{`"summary": "Dentist"`, `"dateTime": "2025-06-12T15:00:00Z"`}},
		{"ics", []string{"BEGIN:VCALENDAR", "SUMMARY:Dentist", "UID:evt1@kalend", "END:VCALENDAR"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			calls := &stubCalls{result: assistant.FunctionResult{Success: true, Data: eventsFixture()}}
			app := testApp(&stubChat{}, calls)

			out, err := runCmd(t, app, "", "events", "--from", "2025-06-09", "--to", "2025-06-16", "--format", tt.format)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}

			require.Len(t, calls.calls, 1)
			assert.Equal(t, assistant.FnGetEvents, calls.calls[0].Name)
			assert.JSONEq(t, `{"startDate":"2025-06-09","endDate":"2025-06-16"}`, string(calls.calls[0].Args))
		})
	}
}

func TestEvents_UnknownFormat(t *testing.T) {
	calls := &stubCalls{}
	_, err := runCmd(t, testApp(&stubChat{}, calls), "", "events", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
	assert.Empty(t, calls.calls)
}

func TestEvents_ListFailure(t *testing.T) {
	calls := &stubCalls{result: assistant.FunctionResult{Error: "calendar: 503 backend error"}}
	_, err := runCmd(t, testApp(&stubChat{}, calls), "", "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 backend error")
}

func TestAuth_WithCodeFlagStoresCredential(t *testing.T) {
	app := testApp(&stubChat{}, &stubCalls{})
	app.OAuth = configuredOAuth()
	var code string
	app.Exchange = fakeExchange(&code)

	out, err := runCmd(t, app, "", "auth", "--code", "http://localhost:8085/oauth/callback?state=x&code=4%2Fabc")
	require.NoError(t, err)

	assert.Equal(t, "4/abc", code)
	creds := app.Credentials.(*memCreds)
	require.Len(t, creds.saved, 1)
	assert.Equal(t, "alice", creds.saved[0].UserID)
	assert.Contains(t, out, "Connected calendar for")
}

func TestAuth_ReadsCodeFromStdin(t *testing.T) {
	app := testApp(&stubChat{}, &stubCalls{})
	app.OAuth = configuredOAuth()
	var code string
	app.Exchange = fakeExchange(&code)

	out, err := runCmd(t, app, "4/pasted\n", "auth")
	require.NoError(t, err)

	assert.Equal(t, "4/pasted", code)
	assert.Contains(t, out, "accounts.google.com")
	assert.Contains(t, out, "Authorization code:")
}

func TestAuth_ExchangeFailure(t *testing.T) {
	app := testApp(&stubChat{}, &stubCalls{})
	app.OAuth = configuredOAuth()
	var code string
	app.Exchange = fakeExchange(&code)

	_, err := runCmd(t, app, "", "auth", "--code", "bad")
	require.Error(t, err)
	assert.True(t, auth.IsAuthError(err))
	assert.Empty(t, app.Credentials.(*memCreds).saved)
}

func TestAuth_RequiresClientCredentials(t *testing.T) {
	_, err := runCmd(t, testApp(&stubChat{}, &stubCalls{}), "", "auth", "--code", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID")
}

func TestParseAuthCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr string
	}{
		{"  4/0Abc  ", "4/0Abc", ""},
		{"http://localhost:8085/oauth/callback?code=xyz&scope=calendar", "xyz", ""},
		{"code=raw&state=1", "raw", ""},
		{"http://localhost/cb?error=access_denied&code=", "", "consent denied: access_denied"},
		{"http://localhost/cb?state=1&code=", "", "no code"},
		{"", "", "required"},
	}
	for _, tt := range tests {
		got, err := parseAuthCode(tt.in)
		if tt.wantErr != "" {
			require.Error(t, err, tt.in)
			assert.Contains(t, err.Error(), tt.wantErr)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestChat_LineMode(t *testing.T) {
	chat := &stubChat{reply: "Sure."}
	app := testApp(chat, &stubCalls{})

	stdin := strings.Join([]string{"first message", "", "follow up", "/clear", "fresh start", "/quit", "never sent"}, "\n")
	out, err := runCmd(t, app, stdin, "chat")
	require.NoError(t, err)

	reqs := chat.calls()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].History)
	assert.Len(t, reqs[1].History, 2)
	assert.Equal(t, "first message", reqs[1].History[0].Text())
	assert.Empty(t, reqs[2].History)
	assert.Equal(t, "fresh start", reqs[2].Message)

	assert.Equal(t, 3, strings.Count(out, "Sure."))
	assert.Contains(t, out, "Conversation cleared.")
}

func TestChat_LineModeWithSessionSkipsLocalHistory(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	app := testApp(chat, &stubCalls{})

	_, err := runCmd(t, app, "one\ntwo\n", "chat", "--session", "s-42")
	require.NoError(t, err)

	reqs := chat.calls()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, "s-42", r.SessionID)
		assert.Empty(t, r.History)
	}
}

func TestChat_LineModeReportsErrorsAndContinues(t *testing.T) {
	chat := &stubChat{err: assistant.ErrTurnInProgress}
	app := testApp(chat, &stubCalls{})

	out, err := runCmd(t, app, "a\nb\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "turn is already in progress"))
}

func TestPersonalities_ListsNames(t *testing.T) {
	app := testApp(&stubChat{}, &stubCalls{})
	app.Personality = "witty"

	out, err := runCmd(t, app, "", "personalities")
	require.NoError(t, err)
	for _, name := range assistant.PersonalityNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "witty *")
	assert.Contains(t, out, "good sense of humor")
}

func TestChatCommands_RequireModel(t *testing.T) {
	for _, args := range [][]string{{"ask", "hi"}, {"chat"}, {"serve"}} {
		app := testApp(nil, &stubCalls{})
		app.Chat = nil
		app.ChatErr = llm.ErrUnavailable

		_, err := runCmd(t, app, "", args...)
		require.Error(t, err, args[0])
		assert.ErrorIs(t, err, llm.ErrUnavailable)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	}
}
