package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

// GenerateRequest holds the parameters for an LLM generation call.
type GenerateRequest struct {
	Task         TaskType
	SystemPrompt string
	UserPrompt   string
	History      []domain.Turn // prior turns replayed as context, oldest first
	Temperature  *float64      // nil uses task default
	MaxTokens    *int          // nil uses task default
}

// GenerateResponse holds the result of an LLM generation call.
type GenerateResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// LLMClient provides access to a language model for text generation.
type LLMClient interface {
	// Generate sends a prompt and returns the raw text response.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Available reports whether the provider is configured and reachable.
	Available(ctx context.Context) bool
}

// New returns the client for cfg.Provider.
func New(ctx context.Context, cfg LLMConfig, observer Observer) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg, observer)
	case ProviderOllama:
		return NewOllamaClient(cfg, observer), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// taskParams resolves temperature and token limits for req.
func (c LLMConfig) taskParams(req GenerateRequest) (float64, int) {
	taskCfg := c.Tasks[req.Task]
	temp := taskCfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTok := taskCfg.MaxTokens
	if req.MaxTokens != nil {
		maxTok = *req.MaxTokens
	}
	return temp, maxTok
}

// attemptFunc performs one provider round trip and returns the text and the
// model name the provider reported.
type attemptFunc func(ctx context.Context) (text, model string, err error)

// runWithRetry applies the task timeout, retries up to cfg.MaxRetries and
// reports the outcome to observer.
func runWithRetry(ctx context.Context, cfg LLMConfig, task TaskType, observer Observer, attempt attemptFunc) (*GenerateResponse, error) {
	start := time.Now()

	timeoutMs := cfg.TaskTimeout(task)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	var (
		lastErr error
		tries   int
	)
	attempts := 1 + cfg.MaxRetries

	for i := 0; i < attempts; i++ {
		tries++
		text, model, err := attempt(ctx)
		if err == nil {
			latency := time.Since(start).Milliseconds()
			observer.OnCallComplete(LLMCallEvent{
				Task:      task,
				Model:     cfg.ModelName(),
				LatencyMs: latency,
				Attempts:  tries,
				Success:   true,
			})
			if model == "" {
				model = cfg.ModelName()
			}
			return &GenerateResponse{Text: text, Model: model, LatencyMs: latency}, nil
		}
		lastErr = err

		// Don't retry on context cancellation/timeout or missing configuration
		if ctx.Err() != nil || errors.Is(err, ErrUnavailable) {
			break
		}
	}

	var final error
	switch {
	case ctx.Err() != nil:
		final = ErrTimeout
	case errors.Is(lastErr, ErrUnavailable):
		final = lastErr
	case isConnectionError(lastErr):
		final = fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	default:
		final = fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
	}

	observer.OnCallComplete(LLMCallEvent{
		Task:      task,
		Model:     cfg.ModelName(),
		LatencyMs: time.Since(start).Milliseconds(),
		Attempts:  tries,
		Success:   false,
		ErrorCode: errorCode(final),
	})
	return nil, final
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	case errors.Is(err, ErrRetryExhausted):
		return "RETRY_EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}
