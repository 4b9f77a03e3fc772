package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"MCQFORGE_DB", "MCQFORGE_LOG", "MCQFORGE_LLM_PROVIDER", "MCQFORGE_ADDR",
		"MCQFORGE_THREAD_LOCKER", "MCQFORGE_REDIS_ADDR", "MCQFORGE_PROGRESS_REDIS_ADDR",
		"MCQFORGE_CORS_ORIGINS", "MCQFORGE_MAX_REVISIONS", "MCQFORGE_OPENAI_MODEL",
		"MCQFORGE_OPENAI_API_KEY", "MCQFORGE_LLM_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "memory", cfg.Threads.Backend)
	assert.Equal(t, 3, cfg.Generation.StatementAttempts)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFileThenEnv(t *testing.T) {
	isolate(t)
	p := writeFile(t, `
db: /tmp/forge.db
log: production
llm:
  provider: openai
  model: gpt-4.1
  timeout: 90s
  retry:
    max_attempts: 5
generation:
  statement_attempts: 4
  max_revisions: 2
server:
  addr: 0.0.0.0:9000
  cors_origins: [https://example.com]
threads:
  backend: redis
  redis_addr: localhost:6379
  poll_interval: 50ms
`)
	t.Setenv("MCQFORGE_ADDR", "127.0.0.1:9100")
	t.Setenv("MCQFORGE_CORS_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("MCQFORGE_OPENAI_API_KEY", "sk-test")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/forge.db", cfg.DB)
	assert.Equal(t, "production", cfg.Log)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.Generation.StatementAttempts)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Addr, "env overrides file")
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)

	lc := cfg.LLMProviderConfig()
	assert.Equal(t, "openai", lc.Provider)
	assert.Equal(t, "gpt-4.1", lc.OpenAI.Model)
	assert.Equal(t, "sk-test", lc.OpenAI.APIKey)
	assert.Equal(t, 5, lc.Retry.MaxAttempts)
	assert.Equal(t, 90*time.Second, lc.Timeout)
	require.NoError(t, lc.Validate())

	rc := cfg.RedisLockConfig()
	assert.Equal(t, "localhost:6379", rc.Addr)
	assert.Equal(t, 50*time.Millisecond, rc.PollInterval)
	assert.Equal(t, 2*time.Minute, rc.TTL)

	assert.Equal(t, 4, cfg.StatementConfig().MaxAttempts)
}

func TestLoadReadsDefaultLocation(t *testing.T) {
	isolate(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "mcqforge")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: production\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Log)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log mode", func(c *Config) { c.Log = "verbose" }},
		{"locker backend", func(c *Config) { c.Threads.Backend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Threads.Backend = "redis" }},
		{"statement attempts", func(c *Config) { c.Generation.StatementAttempts = 0 }},
		{"revisions", func(c *Config) { c.Generation.MaxRevisions = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	isolate(t)
	p := writeFile(t, "llm: [not, a, map]\n")
	_, err := Load(p)
	assert.Error(t, err)
}
