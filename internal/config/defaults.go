package config

// applyDefaults fills in default values for unset fields.
func applyDefaults(c *Config) {
	if c.Workspace.Path == "" {
		c.Workspace.Path = "~/.muellbot"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = 10
	}

	if c.Reminders.FireHour < 0 {
		c.Reminders.FireHour = 18
	}
	if c.Reminders.NotifyMaxAttempts == 0 {
		c.Reminders.NotifyMaxAttempts = 3
	}
	if c.Reminders.NotifyBackoffSeconds == 0 {
		c.Reminders.NotifyBackoffSeconds = 1
	}
	if c.Reminders.SweepSchedule == "" {
		c.Reminders.SweepSchedule = "0 4 * * *"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = "127.0.0.1:9311"
	}
}
