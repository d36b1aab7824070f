// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Backend string

const (
	BackendEdge   Backend = "edge"
	BackendOpenAI Backend = "openai"
)

type Config struct {
	Backend Backend

	// Hosted backend (edge functions)
	BackendURL string
	APIKey     string

	// OpenAI-compatible completion endpoint
	LLMKey     string
	LLMBaseURL string
	Model      string

	// Retry defaults applied when a caller leaves an option unset
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration

	// Model parameters
	Temperature float32
	TopP        float32
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendEdge:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required for the edge backend")
		}
		if c.APIKey == "" {
			return fmt.Errorf("BACKEND_ANON_KEY is required for the edge backend")
		}
	case BackendOpenAI:
		if c.LLMKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
		}
		if c.Model == "" {
			return fmt.Errorf("OPENAI_MODEL is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown AI backend %q", c.Backend)
	}
	return c.DefaultOptions().Validate()
}

// DefaultOptions returns the retry options used for keys a caller omits.
func (c *Config) DefaultOptions() Options {
	return Options{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay,
		Timeout:    c.Timeout,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendEdge,
		Model:       "gpt-4o-mini",
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		Timeout:     DefaultTimeout,
		Temperature: 0.3,
		TopP:        0.9,
	}
}
