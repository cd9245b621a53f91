// Package config loads the moderation service configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/chat"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/moderation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/ratelimit"
)

// Escalation store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config holds the moderation service configuration.
type Config struct {
	NATS       NATSConfig       `yaml:"nats"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
	Escalation EscalationConfig `yaml:"escalation"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Chat       ChatConfig       `yaml:"chat"`
}

type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type PostgresConfig struct {
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":9090"
}

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

type EscalationConfig struct {
	Store          string              `yaml:"store"` // postgres | redis | memory
	Timeout        time.Duration       `yaml:"timeout"`
	SevereSeverity moderation.Severity `yaml:"severe_severity"`
	Thresholds     escalation.Policy   `yaml:"thresholds"`
}

// Limit is a rate limit in a window. A zero limit disables it.
type Limit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	Reports Limit `yaml:"reports"`
	Chat    Limit `yaml:"chat"`
}

type ChatConfig struct {
	WindowSize int `yaml:"window_size"`
	// IdleTTL ages out sender histories without new messages. Negative
	// disables aging.
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// ReportRule returns the report submission rate limit rule.
func (c *Config) ReportRule() ratelimit.Rule {
	r := ratelimit.RuleReport
	r.Limit, r.Window = c.RateLimit.Reports.Limit, c.RateLimit.Reports.Window
	return r
}

// ChatRule returns the chat message rate limit rule.
func (c *Config) ChatRule() ratelimit.Rule {
	r := ratelimit.RuleChatMessage
	r.Limit, r.Window = c.RateLimit.Chat.Limit, c.RateLimit.Chat.Window
	return r
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Load reads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present. Escalation
// thresholds are left empty; a deployment must set them to escalate.
func Default() *Config {
	return &Config{
		NATS:     NATSConfig{URL: "nats://localhost:4222", Name: "moderator"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Postgres: PostgresConfig{Migrate: true},
		Metrics:  MetricsConfig{Addr: ":9090"},
		Log:      LogConfig{Level: "info"},
		Escalation: EscalationConfig{
			Store:          StoreMemory,
			Timeout:        escalation.DefaultTimeout,
			SevereSeverity: moderation.SeverityHigh,
		},
		RateLimit: RateLimitConfig{
			Reports: Limit{Limit: ratelimit.RuleReport.Limit, Window: ratelimit.RuleReport.Window},
			Chat:    Limit{Limit: ratelimit.RuleChatMessage.Limit, Window: ratelimit.RuleChatMessage.Window},
		},
		Chat: ChatConfig{WindowSize: chat.DefaultWindow, IdleTTL: chat.DefaultIdleTTL},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ESCALATION_STORE"); v != "" {
		cfg.Escalation.Store = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.NATS.Name == "" {
		cfg.NATS.Name = "moderator"
	}
	if cfg.Escalation.Store == "" {
		cfg.Escalation.Store = StoreMemory
	}
	if cfg.Escalation.Timeout <= 0 {
		cfg.Escalation.Timeout = escalation.DefaultTimeout
	}
	if cfg.Escalation.SevereSeverity == moderation.SeverityNone {
		cfg.Escalation.SevereSeverity = moderation.SeverityHigh
	}
	if cfg.Chat.WindowSize == 0 {
		cfg.Chat.WindowSize = chat.DefaultWindow
	}
	if cfg.Chat.IdleTTL == 0 {
		cfg.Chat.IdleTTL = chat.DefaultIdleTTL
	}
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Escalation.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("config: escalation.store postgres requires postgres.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown escalation.store %q", c.Escalation.Store))
	}
	if err := c.Escalation.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: escalation.thresholds: %w", err))
	}
	if c.Chat.WindowSize < chat.MinWindow {
		errs = append(errs, fmt.Errorf("config: chat.window_size must be at least %d", chat.MinWindow))
	}
	for name, l := range map[string]Limit{"reports": c.RateLimit.Reports, "chat": c.RateLimit.Chat} {
		if l.Limit < 0 || (l.Limit > 0 && l.Window <= 0) {
			errs = append(errs, fmt.Errorf("config: ratelimit.%s needs a positive limit and window", name))
		}
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("config: log.level: %w", err))
		}
	}
	return errors.Join(errs...)
}
