// Package metrics exposes Prometheus counters for the reminder engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors registered for the bot.
type Metrics struct {
	registry *prometheus.Registry

	RemindersAdded   prometheus.Counter
	RemindersRemoved prometheus.Counter
	RemindersFired   prometheus.Counter
	NotifyFailures   prometheus.Counter
	PendingReminders prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RemindersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellbot_reminders_added_total",
			Help: "Number of reminders registered via /add.",
		}),
		RemindersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellbot_reminders_removed_total",
			Help: "Number of reminders cancelled via /remove.",
		}),
		RemindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellbot_reminders_fired_total",
			Help: "Number of reminder notifications delivered.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muellbot_notify_failures_total",
			Help: "Number of reminders dropped after delivery retries were exhausted.",
		}),
		PendingReminders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "muellbot_pending_reminders",
			Help: "Number of reminders currently pending in the store.",
		}),
	}

	m.registry.MustRegister(
		m.RemindersAdded,
		m.RemindersRemoved,
		m.RemindersFired,
		m.NotifyFailures,
		m.PendingReminders,
	)

	return m
}

// Handler returns an HTTP handler serving the registry in Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
