package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/llm"
)

// Synthesizer phrases operation results as a chat reply.
type Synthesizer struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil client always yields the
// plain summary.
func NewSynthesizer(client llm.LLMClient, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{client: client, logger: logger}
}

// Synthesize returns the reply for one turn. When the LLM call fails or
// returns nothing, the deterministic summary is returned verbatim.
func (s *Synthesizer) Synthesize(ctx context.Context, message string, results []OperationResult, history []domain.Turn, ti domain.TimeInfo, personality string) string {
	summary := Summary(results, ti.Location())
	if s.client == nil {
		return summary
	}

	resp, err := s.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskSynthesize,
		SystemPrompt: synthesizeSystemPrompt(personality, ti),
		UserPrompt:   buildSynthesizeUserPrompt(message, summary),
		History:      history,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "synthesis fell back to summary", "error", err)
		return summary
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return summary
	}
	return reply
}
