// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iyunix/go-subportal/internal/services/ai"
)

type Config struct {
	ServerPort   string
	Environment  string
	DatabasePath string

	// AI backend: "edge" calls the hosted backend's functions, "openai" calls the model directly.
	AIBackend      string
	BackendURL     string
	BackendAnonKey string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string

	AIMaxRetries  int
	AIBaseDelayMs int
	AITimeoutMs   int

	// Per-client loading/error state is dropped after this many idle minutes.
	AIClientIdleMinutes int

	RateLimitPerMinute int
	RateLimitBurst     int

	// Ceiling for all client ids sharing one IP, as a multiple of the per-client limit.
	RateLimitIPMultiplier int
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		Environment:    env,
		DatabasePath:   getEnv("DATABASE_PATH", "portal.db"),
		AIBackend:      strings.ToLower(getEnv("AI_BACKEND", string(ai.BackendEdge))),
		BackendURL:     getEnv("BACKEND_URL", ""),
		BackendAnonKey: getEnv("BACKEND_ANON_KEY", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		// Same defaults the front-end used: 3 attempts, 1s base delay, 30s per attempt.
		AIMaxRetries:       getEnvAsInt("AI_MAX_RETRIES", ai.DefaultMaxRetries),
		AIBaseDelayMs:      getEnvAsInt("AI_BASE_DELAY_MS", int(ai.DefaultBaseDelay/time.Millisecond)),
		AITimeoutMs:        getEnvAsInt("AI_TIMEOUT_MS", int(ai.DefaultTimeout/time.Millisecond)),

		AIClientIdleMinutes:   getEnvAsInt("AI_CLIENT_IDLE_MINUTES", 30),
		RateLimitPerMinute:    getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 5),
		RateLimitIPMultiplier: getEnvAsInt("RATE_LIMIT_IP_MULTIPLIER", 4),
	}

	// Validation for production environments
	if strings.ToLower(env) == "production" {
		if missing := cfg.MissingRequired(); len(missing) > 0 {
			log.Fatalf("Missing required production environment variables: %v", missing)
		}
	}

	return cfg
}

// MissingRequired lists the environment variables the selected AI backend needs but lacks.
func (c *Config) MissingRequired() []string {
	missing := []string{}
	switch ai.Backend(c.AIBackend) {
	case ai.BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	default:
		if c.BackendURL == "" {
			missing = append(missing, "BACKEND_URL")
		}
		if c.BackendAnonKey == "" {
			missing = append(missing, "BACKEND_ANON_KEY")
		}
	}
	return missing
}

// AIConfig builds the AI service configuration.
func (c *Config) AIConfig() (*ai.Config, error) {
	aiConfig := ai.DefaultConfig()
	aiConfig.Backend = ai.Backend(c.AIBackend)
	aiConfig.BackendURL = c.BackendURL
	aiConfig.APIKey = c.BackendAnonKey
	aiConfig.LLMKey = c.OpenAIAPIKey
	aiConfig.LLMBaseURL = c.OpenAIBaseURL
	if c.OpenAIModel != "" {
		aiConfig.Model = c.OpenAIModel
	}
	aiConfig.MaxRetries = c.AIMaxRetries
	aiConfig.BaseDelay = time.Duration(c.AIBaseDelayMs) * time.Millisecond
	aiConfig.Timeout = time.Duration(c.AITimeoutMs) * time.Millisecond

	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return aiConfig, nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}
