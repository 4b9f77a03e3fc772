// Package config loads mcqforge settings from an optional YAML file and
// MCQFORGE_* environment variables. API keys are read from the environment
// only and never from the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/statements"
	"github.com/abhisek/mcqforge/internal/threads"
)

// Config is the full application configuration.
type Config struct {
	// DB is the sqlite path. Empty uses store.DefaultDBPath.
	DB string `yaml:"db"`
	// Log is the logger mode: "development" or "production".
	Log string `yaml:"log"`

	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Threads    ThreadsConfig    `yaml:"threads"`
	Progress   ProgressConfig   `yaml:"progress"`
}

// LLMConfig selects the oracle. Keys come from the environment.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

// GenerationConfig tunes the generators and the review loop.
type GenerationConfig struct {
	StatementAttempts    int     `yaml:"statement_attempts"`
	StatementTemperature float64 `yaml:"statement_temperature"`
	OutlineMaxEntries    int     `yaml:"outline_max_entries"`
	MaxRevisions         int     `yaml:"max_revisions"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// ThreadsConfig selects the per-thread lock backend: "memory" or "redis".
type ThreadsConfig struct {
	Backend      string        `yaml:"backend"`
	RedisAddr    string        `yaml:"redis_addr"`
	TTL          time.Duration `yaml:"ttl"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ProgressConfig enables relaying batch progress over redis pub/sub.
type ProgressConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

// Default returns the built-in configuration.
func Default() Config {
	lc := llm.DefaultConfig()
	sc := statements.DefaultConfig()
	rc := threads.DefaultRedisConfig("")
	return Config{
		Log: "development",
		LLM: LLMConfig{
			Provider: lc.Provider,
			Timeout:  lc.Timeout,
			Retry: RetryConfig{
				MaxAttempts: lc.Retry.MaxAttempts,
				InitialWait: lc.Retry.InitialWait,
				MaxWait:     lc.Retry.MaxWait,
			},
		},
		Generation: GenerationConfig{
			StatementAttempts:    sc.MaxAttempts,
			StatementTemperature: sc.Temperature,
			OutlineMaxEntries:    contenttree.DefaultBuilderConfig().MaxNewEntries,
			MaxRevisions:         evaluation.DefaultMaxRevisions,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Threads: ThreadsConfig{
			Backend:      "memory",
			TTL:          rc.TTL,
			PollInterval: rc.PollInterval,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/mcqforge/config.yaml, falling back
// to ~/.config/mcqforge/config.yaml.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "mcqforge", "config.yaml"), nil
}

// Load builds the configuration. An explicit path must exist; with an empty
// path the default location is read if present. Environment variables are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.DB, "MCQFORGE_DB")
	set(&c.Log, "MCQFORGE_LOG")
	set(&c.LLM.Provider, "MCQFORGE_LLM_PROVIDER")
	set(&c.Server.Addr, "MCQFORGE_ADDR")
	set(&c.Threads.Backend, "MCQFORGE_THREAD_LOCKER")
	set(&c.Threads.RedisAddr, "MCQFORGE_REDIS_ADDR")
	set(&c.Progress.RedisAddr, "MCQFORGE_PROGRESS_REDIS_ADDR")

	if v := os.Getenv("MCQFORGE_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v := os.Getenv("MCQFORGE_MAX_REVISIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.MaxRevisions = n
		}
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Log {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("log: unknown mode %q", c.Log))
	}
	switch c.Threads.Backend {
	case "memory":
	case "redis":
		if c.Threads.RedisAddr == "" {
			errs = append(errs, errors.New("threads: redis backend needs redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("threads: unknown backend %q", c.Threads.Backend))
	}
	if c.Generation.StatementAttempts < 1 {
		errs = append(errs, errors.New("generation: statement_attempts must be positive"))
	}
	if c.Generation.MaxRevisions < 1 {
		errs = append(errs, errors.New("generation: max_revisions must be positive"))
	}
	return errors.Join(errs...)
}

// LLMProviderConfig returns the oracle configuration: file values over defaults,
// then the MCQFORGE_* provider variables (keys, per-provider models).
func (c *Config) LLMProviderConfig() llm.Config {
	lc := llm.DefaultConfig()
	if c.LLM.Provider != "" {
		lc.Provider = c.LLM.Provider
	}
	if c.LLM.Timeout > 0 {
		lc.Timeout = c.LLM.Timeout
	}
	if c.LLM.Retry.MaxAttempts > 0 {
		lc.Retry.MaxAttempts = c.LLM.Retry.MaxAttempts
	}
	if c.LLM.Retry.InitialWait > 0 {
		lc.Retry.InitialWait = c.LLM.Retry.InitialWait
	}
	if c.LLM.Retry.MaxWait > 0 {
		lc.Retry.MaxWait = c.LLM.Retry.MaxWait
	}
	if c.LLM.Model != "" {
		switch lc.Provider {
		case "anthropic":
			lc.Anthropic.Model = c.LLM.Model
		case "openai":
			lc.OpenAI.Model = c.LLM.Model
		case "gemini":
			lc.Gemini.Model = c.LLM.Model
		case "openrouter":
			lc.OpenRouter.Model = c.LLM.Model
		}
	}
	if c.LLM.BaseURL != "" {
		switch lc.Provider {
		case "openai":
			lc.OpenAI.BaseURL = c.LLM.BaseURL
		case "openrouter":
			lc.OpenRouter.BaseURL = c.LLM.BaseURL
		}
	}
	return llm.ApplyEnv(lc)
}

// StatementConfig returns the statement generator settings.
func (c *Config) StatementConfig() statements.Config {
	sc := statements.DefaultConfig()
	sc.MaxAttempts = c.Generation.StatementAttempts
	if c.Generation.StatementTemperature > 0 {
		sc.Temperature = c.Generation.StatementTemperature
	}
	return sc
}

// BuilderConfig returns the outline builder settings.
func (c *Config) BuilderConfig() contenttree.BuilderConfig {
	bc := contenttree.DefaultBuilderConfig()
	if c.Generation.OutlineMaxEntries > 0 {
		bc.MaxNewEntries = c.Generation.OutlineMaxEntries
	}
	return bc
}

// RedisLockConfig returns the redis thread lock settings.
func (c *Config) RedisLockConfig() threads.RedisConfig {
	rc := threads.DefaultRedisConfig(c.Threads.RedisAddr)
	if c.Threads.TTL > 0 {
		rc.TTL = c.Threads.TTL
	}
	if c.Threads.PollInterval > 0 {
		rc.PollInterval = c.Threads.PollInterval
	}
	return rc
}
