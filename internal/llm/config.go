package llm

import (
	"os"
	"strconv"
)

// TaskType identifies the kind of LLM task being performed.
type TaskType string

const (
	// TaskExtract turns a chat message into calendar operations.
	TaskExtract TaskType = "extract"
	// TaskSynthesize rephrases operation results as a chat reply.
	TaskSynthesize TaskType = "synthesize"
)

// Provider selects the model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
)

// TaskConfig holds per-task LLM parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// LLMConfig holds all configuration for the LLM subsystem.
type LLMConfig struct {
	Provider          Provider
	LogCalls          bool
	APIKey            string // gemini
	Endpoint          string // ollama
	Model             string // empty selects the provider default
	TimeoutMs         int
	MaxRetries        int
	RequestsPerMinute int
	Tasks             map[TaskType]TaskConfig
}

// DefaultConfig returns an LLMConfig with sensible defaults.
func DefaultConfig() LLMConfig {
	return LLMConfig{
		Provider:          ProviderGemini,
		LogCalls:          false,
		Endpoint:          "http://localhost:11434",
		TimeoutMs:         20000,
		MaxRetries:        1,
		RequestsPerMinute: 15,
		Tasks: map[TaskType]TaskConfig{
			TaskExtract:    {Temperature: 0.1, MaxTokens: 2048, TimeoutMs: 20000},
			TaskSynthesize: {Temperature: 0.7, MaxTokens: 1024, TimeoutMs: 15000},
		},
	}
}

// LoadConfig reads LLM configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() LLMConfig {
	cfg := DefaultConfig()

	if v := os.Getenv("KALEND_LLM_PROVIDER"); v != "" {
		cfg.Provider = Provider(v)
	}
	if v := os.Getenv("KALEND_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("KALEND_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("KALEND_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("KALEND_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("KALEND_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("KALEND_LLM_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestsPerMinute = n
		}
	}

	applyTaskTimeoutEnv(&cfg, TaskExtract, "KALEND_LLM_EXTRACT_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskSynthesize, "KALEND_LLM_SYNTHESIZE_TIMEOUT_MS")

	return cfg
}

// ModelName returns the configured model or the provider default.
func (c LLMConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderOllama {
		return "llama3.2"
	}
	return "gemini-2.5-flash"
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c LLMConfig) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

func applyTaskTimeoutEnv(cfg *LLMConfig, task TaskType, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}
