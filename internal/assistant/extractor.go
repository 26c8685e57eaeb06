package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/llm"
)

// deleteThemWindow is the look-ahead, in days, of the "delete them" shortcut.
const deleteThemWindow = 7

// Extractor turns a chat message into an Intent with one LLM call.
type Extractor struct {
	client llm.LLMClient
}

// NewExtractor creates an Extractor backed by client.
func NewExtractor(client llm.LLMClient) *Extractor {
	return &Extractor{client: client}
}

// Extract reads message against the user's clock and the prior turns.
// Malformed model output yields a *ParseError; LLM transport failures are
// returned wrapped.
func (x *Extractor) Extract(ctx context.Context, message string, ti domain.TimeInfo, history []domain.Turn) (*Intent, error) {
	if isDeleteThem(message) {
		return deleteThemIntent(ti)
	}

	resp, err := x.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskExtract,
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   buildExtractUserPrompt(message, ti),
		History:      history,
	})
	if err != nil {
		return nil, fmt.Errorf("llm extract failed: %w", err)
	}

	wire, err := llm.ExtractJSON[wireIntent](resp.Text, validateWire)
	if err != nil {
		reason := "invalid model output"
		if errors.Is(err, llm.ErrInvalidOutput) {
			reason = "model output is not a valid intent"
		}
		return nil, &ParseError{Raw: resp.Text, Reason: reason, Err: err}
	}

	intent, err := wire.toIntent(ti.Location())
	if err != nil {
		return nil, &ParseError{Raw: resp.Text, Reason: "invalid operation", Err: err}
	}
	return intent, nil
}

func isDeleteThem(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, ".!")
	return m == "delete them"
}

func deleteThemIntent(ti domain.TimeInfo) (*Intent, error) {
	start, end, err := ti.DayRange(deleteThemWindow)
	if err != nil {
		return nil, &ParseError{Reason: "invalid user date", Err: err}
	}
	return &Intent{Operations: []Operation{
		DeleteOperation{Range: &TimeRange{Start: start, End: end}},
	}}, nil
}
