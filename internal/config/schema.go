// Package config provides configuration loading and validation for Müllbot.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [workspace]: Data directory holding the reminder store
//   - [logging]: Logging level, format, and output
//   - [telegram]: Bot token, chat whitelist, send timeout
//   - [reminders]: Fire hour, notification retry, maintenance schedule
//   - [metrics]: Prometheus listener
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax, for example: token = "${TELEGRAM_BOT_TOKEN}".
package config

// Config represents the main application configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Logging   LoggingConfig   `toml:"logging"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Reminders RemindersConfig `toml:"reminders"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// WorkspaceConfig locates the data directory.
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// TelegramConfig configures the Telegram connector.
type TelegramConfig struct {
	Token              string   `toml:"token"`
	AllowedChats       []string `toml:"allowed_chats"`
	SendTimeoutSeconds int      `toml:"send_timeout_seconds"`
	QuietMode          bool     `toml:"quiet_mode"`
}

// RemindersConfig configures the reminder engine.
type RemindersConfig struct {
	FireHour             int    `toml:"fire_hour"`              // local hour on the eve of the due date
	NotifyMaxAttempts    int    `toml:"notify_max_attempts"`    // delivery attempts before a reminder is dropped
	NotifyBackoffSeconds int    `toml:"notify_backoff_seconds"` // initial delivery retry backoff
	SweepSchedule        string `toml:"sweep_schedule"`         // cron spec for the maintenance sweep, "" disables
}

// MetricsConfig configures the optional Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}
