package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
[workspace]
path = "/var/lib/muellbot"

[telegram]
token = "123456:ABCdefGhIJKlmNoPQRstuVWxyz"
allowed_chats = ["42"]

[logging]
level = "debug"
format = "text"
output = "stderr"
`

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/muellbot", cfg.Workspace.Path)
	assert.Equal(t, "123456:ABCdefGhIJKlmNoPQRstuVWxyz", cfg.Telegram.Token)
	assert.Equal(t, []string{"42"}, cfg.Telegram.AllowedChats)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Empty(t, cfg.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[telegram]
token = "123456:ABCdefGhIJKlmNoPQRstuVWxyz"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 18, cfg.Reminders.FireHour)
	assert.Equal(t, 3, cfg.Reminders.NotifyMaxAttempts)
	assert.Equal(t, 1, cfg.Reminders.NotifyBackoffSeconds)
	assert.Equal(t, "0 4 * * *", cfg.Reminders.SweepSchedule)
	assert.Equal(t, 10, cfg.Telegram.SendTimeoutSeconds)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MidnightFireHour(t *testing.T) {
	path := writeConfig(t, `
[telegram]
token = "123456:ABCdefGhIJKlmNoPQRstuVWxyz"

[reminders]
fire_hour = 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// An explicit zero means midnight, only an absent key falls back to 18.
	assert.Equal(t, 0, cfg.Reminders.FireHour)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("MUELLBOT_TEST_TOKEN", "123456:ABCdefGhIJKlmNoPQRstuVWxyz")

	path := writeConfig(t, `
[telegram]
token = "${MUELLBOT_TEST_TOKEN}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123456:ABCdefGhIJKlmNoPQRstuVWxyz", cfg.Telegram.Token)
}

func TestLoad_EnvVarDefault(t *testing.T) {
	path := writeConfig(t, `
[workspace]
path = "${MUELLBOT_UNSET_DIR:/tmp/muellbot}"

[telegram]
token = "123456:ABCdefGhIJKlmNoPQRstuVWxyz"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/muellbot", cfg.Workspace.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate_MissingToken(t *testing.T) {
	path := writeConfig(t, `
[workspace]
path = "/var/lib/muellbot"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "telegram.token is required")
}

func TestValidate_BadToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"no colon", "123456ABCdefGh"},
		{"non-numeric bot id", "12a456:ABCdefGhIJKlmNo"},
		{"short secret", "123456:short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			cfg.Telegram.Token = tt.token

			errs := cfg.Validate()
			assert.NotEmpty(t, errs)
		})
	}
}

func TestValidate_BadFireHour(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Telegram.Token = "123456:ABCdefGhIJKlmNoPQRstuVWxyz"
	cfg.Reminders.FireHour = 24

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "fire_hour")
}

func TestValidate_MetricsAddrRequired(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Telegram.Token = "123456:ABCdefGhIJKlmNoPQRstuVWxyz"
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddr = ""

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "metrics.listen_addr")
}
