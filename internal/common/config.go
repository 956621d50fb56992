package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string                   `toml:"environment"` // "development" or "production"
	Storage     StorageConfig            `toml:"storage"`
	Logging     LoggingConfig            `toml:"logging"`
	Queue       QueueConfig              `toml:"queue"`
	Analysis    AnalysisConfig           `toml:"analysis"`
	EODHD       EODHDConfig              `toml:"eodhd"`
	Edgar       EdgarConfig              `toml:"edgar"`
	Gemini      GeminiConfig             `toml:"gemini"`
	Claude      ClaudeConfig             `toml:"claude"`
	LLM         LLMConfig                `toml:"llm"`
	Triggers    map[string]TriggerConfig `toml:"triggers"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
	GCInterval     string `toml:"gc_interval"`              // Value log GC interval, e.g. "10m"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// QueueConfig contains configuration for the analysis job queue and its workers
type QueueConfig struct {
	Concurrency      int    `toml:"concurrency" validate:"min=1"` // Number of concurrent poll workers
	ActivePollPeriod string `toml:"active_poll_period"`           // Poll delay after processing a job, e.g. "2s"
	IdlePollPeriod   string `toml:"idle_poll_period"`             // Poll delay when the queue is empty, e.g. "10s"
	MaxRetries       int    `toml:"max_retries" validate:"min=0"` // Retries before a job goes terminal failed
}

// AnalysisConfig contains configuration for the analysis pipeline
type AnalysisConfig struct {
	MacroMaxAge string `toml:"macro_max_age"` // Macro snapshots older than this are refreshed, e.g. "24h"
}

// EODHDConfig contains EODHD market data API configuration
type EODHDConfig struct {
	APIKey    string `toml:"api_key"`    // EODHD API token
	BaseURL   string `toml:"base_url"`   // Override for tests
	RateLimit int    `toml:"rate_limit"` // Requests per second
	Exchange  string `toml:"exchange"`   // Default exchange for bare tickers (default: "US")
}

// EdgarConfig contains SEC EDGAR filing configuration
type EdgarConfig struct {
	Enabled   bool   `toml:"enabled"`    // Fetch filing excerpts as an optional analysis source
	UserAgent string `toml:"user_agent"` // SEC requires an identifying user agent with contact info
	BaseURL   string `toml:"base_url"`   // Override for tests
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for scoring (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for scoring (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"omitempty,oneof=gemini claude"` // "gemini" or "claude"
}

// TriggerConfig configures a single recurring trigger
type TriggerConfig struct {
	Schedule string `toml:"schedule" validate:"required"` // Standard 5-field cron expression
	Enabled  bool   `toml:"enabled"`
}

// Trigger names. Config keys under [triggers] must use these.
const (
	TriggerCandidateRefreshHourly = "candidate-refresh-hourly"
	TriggerCandidateRefreshDaily  = "candidate-refresh-daily"
	TriggerPriceRefresh           = "price-refresh"
	TriggerReconciliation         = "reconciliation"
	TriggerDailyBrief             = "daily-brief"
)

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in aestimo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCInterval: "10m",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Queue: QueueConfig{
			Concurrency:      1,    // Single consumer is the documented minimum
			ActivePollPeriod: "2s", // Quick follow-up poll while jobs are flowing
			IdlePollPeriod:   "10s",
			MaxRetries:       3,
		},
		Analysis: AnalysisConfig{
			MacroMaxAge: "24h",
		},
		EODHD: EODHDConfig{
			APIKey:    "", // User must provide API key in config file
			RateLimit: 10,
			Exchange:  "US",
		},
		Edgar: EdgarConfig{
			Enabled:   true,
			UserAgent: "aestimo/1.0 (ops@aestimo.local)",
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Triggers: map[string]TriggerConfig{
			TriggerCandidateRefreshHourly: {Schedule: "0 * * * *", Enabled: true},
			TriggerCandidateRefreshDaily:  {Schedule: "0 0 * * *", Enabled: true},
			TriggerPriceRefresh:           {Schedule: "*/15 * * * *", Enabled: true},
			TriggerReconciliation:         {Schedule: "30 * * * *", Enabled: true},
			TriggerDailyBrief:             {Schedule: "0 6 * * *", Enabled: true},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct constraints plus anything the tag syntax cannot
// express (cron expressions, duration strings).
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, trigger := range c.Triggers {
		if _, err := cron.ParseStandard(trigger.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for trigger %s: %w", trigger.Schedule, name, err)
		}
	}

	durations := map[string]string{
		"queue.active_poll_period":   c.Queue.ActivePollPeriod,
		"queue.idle_poll_period":     c.Queue.IdlePollPeriod,
		"analysis.macro_max_age":     c.Analysis.MacroMaxAge,
		"storage.badger.gc_interval": c.Storage.Badger.GCInterval,
		"gemini.timeout":             c.Gemini.Timeout,
		"claude.timeout":             c.Claude.Timeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration %q for %s: %w", value, key, err)
		}
	}

	return nil
}

// ParseDurationOr parses a duration string, falling back to the given default
// when the value is empty or malformed.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// MacroMaxAge returns the parsed macro snapshot freshness window.
func (c *AnalysisConfig) MacroMaxAgeDuration() time.Duration {
	return ParseDurationOr(c.MacroMaxAge, 24*time.Hour)
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AESTIMO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if badgerPath := os.Getenv("AESTIMO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("AESTIMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("AESTIMO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Queue configuration
	if concurrency := os.Getenv("AESTIMO_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if maxRetries := os.Getenv("AESTIMO_QUEUE_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Queue.MaxRetries = mr
		}
	}
	if activePoll := os.Getenv("AESTIMO_QUEUE_ACTIVE_POLL_PERIOD"); activePoll != "" {
		config.Queue.ActivePollPeriod = activePoll
	}
	if idlePoll := os.Getenv("AESTIMO_QUEUE_IDLE_POLL_PERIOD"); idlePoll != "" {
		config.Queue.IdlePollPeriod = idlePoll
	}

	// Analysis configuration
	if macroMaxAge := os.Getenv("AESTIMO_MACRO_MAX_AGE"); macroMaxAge != "" {
		config.Analysis.MacroMaxAge = macroMaxAge
	}

	// Provider API keys
	if apiKey := os.Getenv("AESTIMO_EODHD_API_KEY"); apiKey != "" {
		config.EODHD.APIKey = apiKey
	} else if apiKey := os.Getenv("EODHD_API_TOKEN"); apiKey != "" {
		config.EODHD.APIKey = apiKey
	}
	if apiKey := os.Getenv("AESTIMO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("AESTIMO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	} else if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if provider := os.Getenv("AESTIMO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}
