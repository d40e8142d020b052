package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no provider keys set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
		"SCHOLARLOOP_CONFIG", "SCHOLARLOOP_LLM_PROVIDER", "SCHOLARLOOP_ADDR",
		"SCHOLARLOOP_AI_DAILY_LIMIT", "SCHOLARLOOP_REDIS_ADDR",
	} {
		// Setenv restores the old value on cleanup; unset so .env can apply.
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Log.Mode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50, cfg.Entitlement.DailyLimit)
	assert.Equal(t, 25, cfg.Entitlement.TrialDailyLimit)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.Timeout)
	assert.True(t, cfg.Pipeline.CompleteOnDisconnect)
	assert.Empty(t, cfg.LLM.Provider)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_Layering(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SCHOLARLOOP_AI_DAILY_LIMIT=7\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte(`
log:
  mode: prod
store:
  driver: sqlite
  dsn: /tmp/scholarloop-test.db
entitlement:
  daily_limit: 30
server:
  addr: ":9000"
  allow_origins: ["https://app.example.com"]
pipeline:
  timeout: 45s
`), 0o600))
	t.Setenv("SCHOLARLOOP_ADDR", ":9100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Log.Mode)
	assert.Equal(t, "/tmp/scholarloop-test.db", cfg.Store.DSN)
	assert.Equal(t, 7, cfg.Entitlement.DailyLimit, ".env beats the file")
	assert.Equal(t, 25, cfg.Entitlement.TrialDailyLimit)
	assert.Equal(t, ":9100", cfg.Server.Addr, "environment beats the file")
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.Timeout)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_DiscoversProviderKey(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-live-abc123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-live-abc123", cfg.LLM.OpenAI.APIKey)
}

func TestLoad_PlaceholderKeyIsUnconfigured(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "your-api-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DSN = "host=localhost dbname=scholarloop"
		}, false},
		{"negative limit", func(c *Config) { c.Entitlement.DailyLimit = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
