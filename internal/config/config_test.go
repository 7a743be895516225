package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_DefaultsWithSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, int64(3000), cfg.RejectBelow)
	assert.Equal(t, int64(50000), cfg.QualifyAbove)
	assert.Equal(t, 24*time.Hour, cfg.ReminderInterval)
	assert.Equal(t, "https://meet.google.com", cfg.MeetingBaseURL)
	assert.True(t, cfg.AllowSignup)
}

func TestLoad_FileThenEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, `
server:
  http_port: 9000
  cors_origins: ["https://crm.example.com"]
dependencies:
  postgres_url: postgres://file
triage:
  reject_below: 1000
  qualify_above: 20000
reminders:
  interval: 1h
auth:
  allow_signup: false
`)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, []string{"https://crm.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL, "environment wins over file")
	assert.Equal(t, int64(1000), cfg.RejectBelow)
	assert.Equal(t, int64(20000), cfg.QualifyAbove)
	assert.Equal(t, time.Hour, cfg.ReminderInterval)
	assert.False(t, cfg.AllowSignup)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-dotenv\nMAIL_USER=sales@example.com\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("MAIL_USER")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)
	assert.Equal(t, "sales@example.com", cfg.MailFrom, "from falls back to the SMTP user")
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TRIAGE_REJECT_BELOW", "90000")
	_, err := Load("")
	assert.ErrorContains(t, err, "reject_below")

	_, err = Load(writeFile(t, "server: [unterminated"))
	assert.Error(t, err)
}
