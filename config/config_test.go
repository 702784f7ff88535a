package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "config.json", cfg.Storage.PolicyFile)
	assert.Equal(t, "Sent_Emails.csv", cfg.Storage.SentFile)
	assert.Equal(t, "Failed_Emails.csv", cfg.Storage.FailedFile)
	assert.Equal(t, "development", cfg.App.Env)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
smtp:
  host: smtp.example.com
  port: 465
storage:
  policy_file: /tmp/policy.json
app:
  env: production
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "/tmp/policy.json", cfg.Storage.PolicyFile)
	assert.Equal(t, "production", cfg.App.Env)
	// Unset fields still get defaults.
	assert.Equal(t, "Sent_Emails.csv", cfg.Storage.SentFile)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("SMTP_HOST", "relay.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("POLICY_FILE", "/tmp/p.json")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "relay.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "/tmp/p.json", cfg.Storage.PolicyFile)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SOME_KEY", "value")
	assert.Equal(t, "value", GetEnv("SOME_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("SOME_OTHER_KEY", "fallback"))
}
