package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mailhive.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
hostname = "mx.example.com"
maildir = "/var/spool/mailhive"
debug = true
metrics_addr = ":9100"
idle_timeout = "30s"
max_auth_attempts = 5

[smtp]
addr = ":2525"
workers = 20
require_auth = true

[pop3]
addr = ":1100"
workers = 7

[[users]]
name = "alice"
address = "alice@example.com"
password = "secret"

[[users]]
name = "bob"
address = "bob@example.com"
pwhash = "$2a$10$Xl0yhvzLIaJCDdKBS0Lld.ePhGPTra4ElX3eZ7kowfIMuXBdUCZXG"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mx.example.com", cfg.Hostname)
	assert.Equal(t, "/var/spool/mailhive", cfg.Maildir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, 5, cfg.MaxAuthAttempts)

	assert.Equal(t, 20, cfg.SMTP.Workers)
	assert.True(t, cfg.SMTP.RequireAuth)
	assert.Equal(t, ":1100", cfg.POP.Addr)
	assert.Equal(t, 7, cfg.POP.Workers)

	require.Len(t, cfg.Users, 2)
	assert.Equal(t, "alice", cfg.Users[0].Name)
	assert.Equal(t, "alice@example.com", cfg.Users[0].Address)
	assert.NotEmpty(t, cfg.Users[1].Pwhash)

	idle, err := cfg.GetIdleTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, idle)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `hostname = "mx.test"`))
	require.NoError(t, err)

	assert.Equal(t, ":2525", cfg.SMTP.Addr)
	assert.Equal(t, 10, cfg.SMTP.Workers)
	assert.False(t, cfg.SMTP.RequireAuth)
	assert.Equal(t, ":1100", cfg.POP.Addr)
	assert.Equal(t, 5, cfg.POP.Workers)
	assert.Equal(t, 3, cfg.MaxAuthAttempts)
}

func TestConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("bad idle timeout", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `idle_timeout = "soon"`))
		assert.Error(t, err)
	})

	t.Run("zero workers", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "[smtp]\nworkers = 0\n"))
		assert.Error(t, err)
	})

	t.Run("duplicate user", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
[[users]]
name = "alice"
[[users]]
name = "alice"
`))
		assert.Error(t, err)
	})

	t.Run("nameless user", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "[[users]]\npassword = \"x\"\n"))
		assert.Error(t, err)
	})
}
