// ABOUTME: Configuration loading and parsing for studybuddy-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete studybuddy-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	LLM       LLMConfig       `yaml:"llm"`
	Study     StudyConfig     `yaml:"study"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the development HTTP listener address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// StoreConfig selects and configures the session store backend
type StoreConfig struct {
	// Backend is "memory" or "sqlite"
	Backend string `yaml:"backend"`
	// Path is the SQLite database file (sqlite backend only)
	Path string `yaml:"path"`
	// Retention evicts sessions idle longer than this (sqlite backend only, 0 = keep forever)
	Retention    time.Duration `yaml:"-"`
	RetentionRaw string        `yaml:"retention"`
}

// RateLimitConfig configures the per-identity event gate
type RateLimitConfig struct {
	// Backend is "memory" or "redis"
	Backend   string        `yaml:"backend"`
	MaxEvents int           `yaml:"max_events"`
	Window    time.Duration `yaml:"-"`
	WindowRaw string        `yaml:"window"`

	// Redis backend settings
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// DedupeConfig configures the duplicate-delivery cache
type DedupeConfig struct {
	TTL        time.Duration `yaml:"-"`
	TTLRaw     string        `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// LLMConfig holds provider ordering and retry policy
type LLMConfig struct {
	// MaxAttempts bounds total completion attempts across all providers
	MaxAttempts int              `yaml:"max_attempts"`
	Providers   []ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures one model provider. Order in the list is
// fallback order: the first provider is primary.
type ProviderConfig struct {
	Name string `yaml:"name"`
	// Kind is "gemini" or "openai" (OpenAI-compatible chat API: Groq, xAI, ...)
	Kind       string        `yaml:"kind"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// StudyConfig holds the pedagogical knobs
type StudyConfig struct {
	// QuizSize is the number of questions generated per quiz
	QuizSize int `yaml:"quiz_size"`
	// FlashcardCount is the deck size generated per flashcard session
	FlashcardCount int `yaml:"flashcard_count"`
	// HistoryLimit caps stored conversation turns per session
	HistoryLimit int `yaml:"history_limit"`
	// ContextTurns is how many trailing turns are sent as LLM context
	ContextTurns int `yaml:"context_turns"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the config file leaves fields unset.
const (
	DefaultQuizSize       = 5
	DefaultFlashcardCount = 7
	DefaultHistoryLimit   = 20
	DefaultContextTurns   = 10
	DefaultMaxAttempts    = 3
	DefaultMaxEvents      = 5
	DefaultWindow         = time.Hour
	DefaultDedupeTTL      = 10 * time.Minute
	DefaultDedupeEntries  = 4096
	DefaultTimeout        = 30 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset fields with the package defaults.
func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.MaxEvents == 0 {
		c.RateLimit.MaxEvents = DefaultMaxEvents
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultWindow
	}
	if c.Dedupe.TTL == 0 {
		c.Dedupe.TTL = DefaultDedupeTTL
	}
	if c.Dedupe.MaxEntries == 0 {
		c.Dedupe.MaxEntries = DefaultDedupeEntries
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = DefaultMaxAttempts
	}
	for i := range c.LLM.Providers {
		if c.LLM.Providers[i].Timeout == 0 {
			c.LLM.Providers[i].Timeout = DefaultTimeout
		}
	}
	if c.Study.QuizSize == 0 {
		c.Study.QuizSize = DefaultQuizSize
	}
	if c.Study.FlashcardCount == 0 {
		c.Study.FlashcardCount = DefaultFlashcardCount
	}
	if c.Study.HistoryLimit == 0 {
		c.Study.HistoryLimit = DefaultHistoryLimit
	}
	if c.Study.ContextTurns == 0 {
		c.Study.ContextTurns = DefaultContextTurns
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"memory\" or \"sqlite\", got %q", c.Store.Backend)
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("ratelimit.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("ratelimit.backend must be \"memory\" or \"redis\", got %q", c.RateLimit.Backend)
	}

	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("llm.providers requires at least one provider")
	}
	for i, p := range c.LLM.Providers {
		if p.Name == "" {
			return fmt.Errorf("llm.providers[%d].name is required", i)
		}
		if p.Kind != "gemini" && p.Kind != "openai" {
			return fmt.Errorf("llm.providers[%d].kind must be \"gemini\" or \"openai\", got %q", i, p.Kind)
		}
		if p.APIKey == "" {
			return fmt.Errorf("llm.providers[%d].api_key is required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("llm.providers[%d].model is required", i)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Store.RetentionRaw != "" {
		cfg.Store.Retention, err = time.ParseDuration(cfg.Store.RetentionRaw)
		if err != nil {
			return fmt.Errorf("parsing store.retention %q: %w", cfg.Store.RetentionRaw, err)
		}
	}

	if cfg.RateLimit.WindowRaw != "" {
		cfg.RateLimit.Window, err = time.ParseDuration(cfg.RateLimit.WindowRaw)
		if err != nil {
			return fmt.Errorf("parsing ratelimit.window %q: %w", cfg.RateLimit.WindowRaw, err)
		}
	}

	if cfg.Dedupe.TTLRaw != "" {
		cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe.ttl %q: %w", cfg.Dedupe.TTLRaw, err)
		}
	}

	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		if p.TimeoutRaw != "" {
			p.Timeout, err = time.ParseDuration(p.TimeoutRaw)
			if err != nil {
				return fmt.Errorf("parsing llm.providers[%d].timeout %q: %w", i, p.TimeoutRaw, err)
			}
		}
	}

	return nil
}
