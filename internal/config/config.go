// Package config loads intelligence-plane configuration.
//
// Configuration comes from two places: an optional YAML file (pointed at
// by INTELPLANE_CONFIG) for routing-table and provider overrides, and
// environment variables with sensible defaults for everything else.
// Duration settings are env-only (Go duration syntax, e.g. "30s"). The
// request path never reads the environment; providers receive an
// immutable ProviderConfig at construction.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the intelligence plane.
type Config struct {
	Port      int             `yaml:"port"`
	Version   string          `yaml:"version"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	Providers map[string]ProviderConfig `yaml:"providers"`
	Budget    BudgetConfig              `yaml:"budget"`
	Breaker   BreakerConfig             `yaml:"breaker"`
	Executor  ExecutorConfig            `yaml:"executor"`
	Routing   RoutingConfig             `yaml:"routing"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// ProviderConfig is the immutable per-provider configuration injected at
// adapter construction.
type ProviderConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"baseURL"`
	APIKey      string        `yaml:"apiKey"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BudgetConfig controls the shared admission pool.
type BudgetConfig struct {
	// Limit is the number of admitted requests per window.
	Limit int `yaml:"limit"`
	// Window is the reset interval of the pool.
	Window time.Duration `yaml:"window"`
	// ReservationPct is the fraction of Limit held back as headroom for
	// high/critical priority requests once the normal limit is exhausted.
	ReservationPct float64 `yaml:"reservationPct"`
}

// BreakerConfig controls the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	CoolDown         time.Duration `yaml:"coolDown"`
	CoolDownCap      time.Duration `yaml:"coolDownCap"`
}

// ExecutorConfig controls retry and backoff behaviour.
type ExecutorConfig struct {
	MaxRetries          int           `yaml:"maxRetries"`
	MaxRateLimitRetries int           `yaml:"maxRateLimitRetries"`
	RateLimitWait       time.Duration `yaml:"rateLimitWait"`
	BackoffBaseHosted   time.Duration `yaml:"backoffBaseHosted"`
	BackoffBaseLocal    time.Duration `yaml:"backoffBaseLocal"`
	BackoffCap          time.Duration `yaml:"backoffCap"`
}

// RoutingConfig overrides the built-in routing table.
type RoutingConfig struct {
	// Default is the chain used for unmapped episode kinds.
	Default []string `yaml:"default"`
	// Chains maps episode kind to an ordered provider chain.
	Chains map[string][]string `yaml:"chains"`
}

// Load reads configuration from the optional YAML file at path (or
// INTELPLANE_CONFIG when path is empty) layered over environment
// variables and built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INTELPLANE_CONFIG")
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:    envInt("INTELPLANE_PORT", 8080),
		Version: envStr("INTELPLANE_VERSION", "0.4.0"),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "intelplane"),
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {
				Enabled:     envStr("ANTHROPIC_API_KEY", "") != "",
				Model:       envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
				BaseURL:     envStr("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:      envStr("ANTHROPIC_API_KEY", ""),
				MaxTokens:   envInt("ANTHROPIC_MAX_TOKENS", 4096),
				Temperature: 0.2,
				Timeout:     envDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
			},
			"openai": {
				Enabled:     envStr("OPENAI_API_KEY", "") != "",
				Model:       envStr("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL:     envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:      envStr("OPENAI_API_KEY", ""),
				MaxTokens:   envInt("OPENAI_MAX_TOKENS", 4096),
				Temperature: 0.2,
				Timeout:     envDuration("OPENAI_TIMEOUT", 45*time.Second),
			},
			"together": {
				Enabled:     envStr("TOGETHER_API_KEY", "") != "",
				Model:       envStr("TOGETHER_MODEL", "meta-llama/Llama-3.3-70B-Instruct-Turbo"),
				BaseURL:     envStr("TOGETHER_BASE_URL", "https://api.together.xyz/v1"),
				APIKey:      envStr("TOGETHER_API_KEY", ""),
				MaxTokens:   envInt("TOGETHER_MAX_TOKENS", 4096),
				Temperature: 0.2,
				Timeout:     envDuration("TOGETHER_TIMEOUT", 60*time.Second),
			},
			"ollama": {
				Enabled:     envBool("OLLAMA_ENABLED", true),
				Model:       envStr("OLLAMA_MODEL", "llama3.1:8b"),
				BaseURL:     envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
				MaxTokens:   envInt("OLLAMA_MAX_TOKENS", 4096),
				Temperature: 0.2,
				Timeout:     envDuration("OLLAMA_TIMEOUT", 120*time.Second),
			},
		},
		Budget: BudgetConfig{
			Limit:          envInt("BUDGET_LIMIT", 1000),
			Window:         envDuration("BUDGET_WINDOW", time.Hour),
			ReservationPct: envFloat("BUDGET_RESERVATION_PCT", 0.10),
		},
		Breaker: BreakerConfig{
			FailureThreshold: envInt("BREAKER_FAILURE_THRESHOLD", 5),
			CoolDown:         envDuration("BREAKER_COOL_DOWN", 30*time.Second),
			CoolDownCap:      envDuration("BREAKER_COOL_DOWN_CAP", 5*time.Minute),
		},
		Executor: ExecutorConfig{
			MaxRetries:          envInt("EXECUTOR_MAX_RETRIES", 3),
			MaxRateLimitRetries: envInt("EXECUTOR_MAX_RATE_LIMIT_RETRIES", 2),
			RateLimitWait:       envDuration("EXECUTOR_RATE_LIMIT_WAIT", time.Second),
			BackoffBaseHosted:   envDuration("EXECUTOR_BACKOFF_BASE_HOSTED", 500*time.Millisecond),
			BackoffBaseLocal:    envDuration("EXECUTOR_BACKOFF_BASE_LOCAL", 2*time.Second),
			BackoffCap:          envDuration("EXECUTOR_BACKOFF_CAP", 30*time.Second),
		},
		Routing: RoutingConfig{},
	}
}

func (c *Config) validate() error {
	if c.Budget.Limit <= 0 {
		return fmt.Errorf("budget limit must be positive, got %d", c.Budget.Limit)
	}
	if c.Budget.ReservationPct < 0 || c.Budget.ReservationPct >= 1 {
		return fmt.Errorf("budget reservation must be in [0,1), got %g", c.Budget.ReservationPct)
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker failure threshold must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.Executor.MaxRetries <= 0 {
		return fmt.Errorf("executor max retries must be positive, got %d", c.Executor.MaxRetries)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
