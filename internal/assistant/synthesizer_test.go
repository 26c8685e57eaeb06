package assistant

import (
	"context"
	"testing"

	"github.com/alexanderramin/kalend/internal/llm"
	"github.com/alexanderramin/kalend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var synthResults = []OperationResult{{Type: OpCreate, Success: true, Events: []ItemResult{
	{ID: "1", Summary: "Meeting", Start: "2025-06-11T14:00:00Z", Success: true},
}}}

func TestSynthesize_UsesLLMReply(t *testing.T) {
	client := &mockLLMClient{responses: []string{"  Done! Your meeting is booked for tomorrow at 2 PM.  "}}
	s := NewSynthesizer(client, nil)

	reply := s.Synthesize(context.Background(), "book a meeting", synthResults, nil, testutil.TestTimeInfo(), Personalities["witty"])

	assert.Equal(t, "Done! Your meeting is booked for tomorrow at 2 PM.", reply)
	calls := client.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.TaskSynthesize, calls[0].Task)
	assert.Contains(t, calls[0].UserPrompt, `"Meeting" (Wed Jun 11, 2:00 PM)`)
	assert.Contains(t, calls[0].UserPrompt, "book a meeting")
	assert.Contains(t, calls[0].SystemPrompt, "Witty helper")
	assert.Contains(t, calls[0].SystemPrompt, "Do not mention JSON")
}

func TestSynthesize_FallbackOnLLMFailure(t *testing.T) {
	s := NewSynthesizer(&mockLLMClient{err: llm.ErrUnavailable}, nil)

	reply := s.Synthesize(context.Background(), "book a meeting", synthResults, nil, testutil.TestTimeInfo(), "")

	assert.Equal(t, Summary(synthResults, nil), reply)
}

func TestSynthesize_FallbackOnEmptyReply(t *testing.T) {
	s := NewSynthesizer(&mockLLMClient{responses: []string{"   "}}, nil)

	reply := s.Synthesize(context.Background(), "book a meeting", synthResults, nil, testutil.TestTimeInfo(), "")

	assert.Contains(t, reply, "Created 1 event")
}

func TestSynthesize_NilClient(t *testing.T) {
	reply := NewSynthesizer(nil, nil).Synthesize(context.Background(), "hi", nil, nil, testutil.TestTimeInfo(), "")
	assert.Equal(t, "No calendar actions were taken.", reply)
}
