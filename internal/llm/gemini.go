package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// geminiClient implements LLMClient on the Gemini API.
type geminiClient struct {
	cfg      LLMConfig
	client   *genai.Client // nil when no API key is configured
	limiter  *rate.Limiter
	observer Observer
}

// NewGeminiClient creates an LLMClient backed by Gemini. Without an API key
// the client is returned in an unavailable state rather than failing, so the
// rest of the app can still start.
func NewGeminiClient(ctx context.Context, cfg LLMConfig, observer Observer) (LLMClient, error) {
	if observer == nil {
		observer = NoopObserver{}
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultConfig().RequestsPerMinute
	}
	g := &geminiClient{
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		observer: observer,
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Close releases the underlying connection.
func (g *geminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *geminiClient) Available(context.Context) bool {
	return g.client != nil
}

func (g *geminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	temp, maxTok := g.cfg.taskParams(req)

	return runWithRetry(ctx, g.cfg, req.Task, g.observer, func(ctx context.Context) (string, string, error) {
		if g.client == nil {
			return "", "", fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrUnavailable)
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return "", "", err
		}

		model := g.client.GenerativeModel(g.cfg.ModelName())
		model.SetTemperature(float32(temp))
		if maxTok > 0 {
			model.SetMaxOutputTokens(int32(maxTok))
		}
		if req.SystemPrompt != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))
		}

		// A failed SendMessage leaves the prompt in the session history, so
		// every attempt starts a fresh session.
		cs := model.StartChat()
		cs.History = geminiHistory(req.History)

		resp, err := cs.SendMessage(ctx, genai.Text(req.UserPrompt))
		if err != nil {
			return "", "", classifyGeminiError(err)
		}
		text := responseText(resp)
		if text == "" {
			return "", "", ErrEmptyResponse
		}
		return text, g.cfg.ModelName(), nil
	})
}

// geminiHistory converts turns into Gemini contents, skipping empty ones.
func geminiHistory(turns []domain.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var parts []genai.Part
		for _, p := range t.Parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			parts = append(parts, genai.Text(p))
		}
		if len(parts) == 0 {
			continue
		}
		role := string(domain.RoleUser)
		if t.Role == domain.RoleModel {
			role = string(domain.RoleModel)
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

// responseText concatenates the text parts of the first candidate that has any.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// classifyGeminiError maps auth failures to ErrUnavailable so they are not
// retried. Rate limits and server errors stay retryable.
func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("gemini rate limited: %w", err)
		}
	}
	return err
}
