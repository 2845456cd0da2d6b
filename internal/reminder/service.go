package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muellbot/muellbot/internal/logger"
	"github.com/muellbot/muellbot/internal/metrics"
	"github.com/muellbot/muellbot/internal/retry"
	"github.com/robfig/cron/v3"
)

// ServiceConfig configures the reminder service.
type ServiceConfig struct {
	// FireHour is the local hour on the eve of the due date at which the
	// notification is sent. Zero is midnight; out-of-range values fall back
	// to 18.
	FireHour int
	// Location resolves calendar dates to instants. Defaults to time.Local.
	Location *time.Location
	// Retry bounds the notification delivery attempts. After the attempts are
	// exhausted the reminder is logged as failed and removed, never refired.
	Retry retry.Config
	// SweepSchedule is a cron expression for the periodic maintenance sweep
	// that re-arms stored records missing a timer and compacts the store.
	// Empty disables the sweep.
	SweepSchedule string
}

// Service orchestrates the store and the scheduler behind the four public
// operations Add, Remove, List and the internal fire path. All mutating
// operations are serialized behind a single mutex, which gives the per-key
// exclusion the engine needs between replace, cancel and fire.
type Service struct {
	store    *Store
	sched    *Scheduler
	notifier Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
	cfg      ServiceConfig

	sweeper *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewService creates a reminder service. Start must be called before use.
func NewService(store *Store, sched *Scheduler, notifier Notifier, m *metrics.Metrics, log *logger.Logger, cfg ServiceConfig) *Service {
	if cfg.FireHour < 0 || cfg.FireHour > 23 {
		cfg.FireHour = 18
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Service{
		store:    store,
		sched:    sched,
		notifier: notifier,
		log:      log,
		metrics:  m,
		cfg:      cfg,
	}
}

// Start recovers all stored reminders and arms their timers. Records whose
// fire time already elapsed fire as soon as their timer goroutine runs. It
// also starts the maintenance sweep when configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("reminder service already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	records := s.store.GetAll()
	for _, rec := range records {
		s.sched.Schedule(rec.Key(), rec.FireAt, s.fire)
	}
	s.metrics.PendingReminders.Set(float64(len(records)))

	s.log.Info("reminder service started",
		logger.Field{Key: "recovered", Value: len(records)},
		logger.Field{Key: "fire_hour", Value: s.cfg.FireHour})

	if s.cfg.SweepSchedule != "" {
		s.sweeper = cron.New()
		if _, err := s.sweeper.AddFunc(s.cfg.SweepSchedule, s.Sweep); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.SweepSchedule, err)
		}
		s.sweeper.Start()
		s.log.Info("maintenance sweep scheduled",
			logger.Field{Key: "schedule", Value: s.cfg.SweepSchedule})
	}

	return nil
}

// Stop cancels all armed timers and stops the maintenance sweep. The store
// is left to the caller to close.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.cancel()
	s.sched.Stop()

	s.log.Info("reminder service stopped")
}

// Add registers a reminder for the chat, due date and category. The due date
// must parse as dd.mm.yyyy and the category must be one of the four known
// tokens; on a validation error nothing is mutated. Adding with a key that
// already exists replaces the stored record and its timer, so the same
// (chat, date, category) triple never produces two notifications.
func (s *Service) Add(chatID int64, dueDate, category string) (JobRecord, error) {
	due, err := ParseDueDate(dueDate)
	if err != nil {
		return JobRecord{}, err
	}
	cat, err := ParseCategory(category)
	if err != nil {
		return JobRecord{}, err
	}

	rec := JobRecord{
		ChatID:   chatID,
		DueDate:  due,
		Category: cat,
		FireAt:   FireAt(due, s.cfg.FireHour, s.cfg.Location),
		State:    StatePending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Persist first: a failed Put must not leave an armed timer with no
	// durable backing.
	if err := s.store.Put(rec); err != nil {
		return JobRecord{}, fmt.Errorf("failed to persist reminder: %w", err)
	}
	s.sched.Schedule(rec.Key(), rec.FireAt, s.fire)

	s.metrics.RemindersAdded.Inc()
	s.metrics.PendingReminders.Set(float64(s.store.Len()))

	s.log.Info("reminder added",
		logger.Field{Key: "key", Value: rec.Key().String()},
		logger.Field{Key: "fire_at", Value: rec.FireAt})

	return rec, nil
}

// Remove cancels the reminder for the chat, due date and category. Input is
// validated exactly like Add. It returns true only when an armed reminder
// existed and was removed; removing an unknown key is an ordinary false, not
// an error. When Remove races a natural fire, the scheduler's state machine
// decides the winner: either the cancellation wins and no notification is
// ever sent, or the fire already won and Remove reports false.
func (s *Service) Remove(chatID int64, dueDate, category string) (bool, error) {
	due, err := ParseDueDate(dueDate)
	if err != nil {
		return false, err
	}
	cat, err := ParseCategory(category)
	if err != nil {
		return false, err
	}

	key := JobKey{ChatID: chatID, DueDate: due, Category: cat}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sched.Cancel(key) {
		return false, nil
	}

	removed, err := s.store.Delete(key)
	if err != nil {
		// The timer is already gone; the sweep re-arms the leftover record if
		// the delete failure proves transient.
		s.log.Error("failed to delete cancelled reminder from store", err,
			logger.Field{Key: "key", Value: key.String()})
		return false, fmt.Errorf("failed to delete reminder: %w", err)
	}

	if removed {
		s.metrics.RemindersRemoved.Inc()
		s.metrics.PendingReminders.Set(float64(s.store.Len()))
		s.log.Info("reminder removed", logger.Field{Key: "key", Value: key.String()})
	}

	return removed, nil
}

// List returns the pending reminders for one chat, ordered by due date
// ascending. An empty result is an empty slice, never an error.
func (s *Service) List(chatID int64) []JobRecord {
	return sortByDueDate(filterChat(s.store.GetAll(), chatID))
}

// ListAll returns every pending reminder, ordered by due date ascending.
func (s *Service) ListAll() []JobRecord {
	return sortByDueDate(s.store.GetAll())
}

// fire is the scheduler callback. It reads the record, delivers the
// notification with bounded retries, then removes the record from the store.
// Delivery happens outside the service mutex so a slow notifier never blocks
// Add/Remove.
func (s *Service) fire(key JobKey) {
	s.mu.Lock()
	rec, ok := s.store.Get(key)
	ctx := s.ctx
	s.mu.Unlock()

	if !ok {
		s.log.Warn("fired reminder has no stored record",
			logger.Field{Key: "key", Value: key.String()})
		return
	}
	if ctx == nil || ctx.Err() != nil {
		return
	}

	n := Notification{
		ChatID:        rec.ChatID,
		Category:      rec.Category,
		DueDate:       rec.DueDate,
		CorrelationID: uuid.NewString(),
	}

	err := retry.Do(ctx, s.cfg.Retry, func() error {
		return s.notifier.Notify(ctx, n)
	})
	if err != nil && ctx.Err() != nil {
		// Shutdown interrupted the delivery. Keep the record pending: the
		// next startup re-arms it and the reminder fires then.
		s.log.Warn("delivery interrupted by shutdown, keeping reminder",
			logger.Field{Key: "key", Value: key.String()},
			logger.Field{Key: "correlation_id", Value: n.CorrelationID})
		return
	}
	if err != nil {
		s.metrics.NotifyFailures.Inc()
		s.log.Error("reminder delivery failed, dropping", err,
			logger.Field{Key: "key", Value: key.String()},
			logger.Field{Key: "correlation_id", Value: n.CorrelationID})
	} else {
		s.metrics.RemindersFired.Inc()
		s.log.Info("reminder fired",
			logger.Field{Key: "key", Value: key.String()},
			logger.Field{Key: "correlation_id", Value: n.CorrelationID})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, derr := s.store.Delete(key); derr != nil {
		s.log.Error("failed to delete fired reminder from store", derr,
			logger.Field{Key: "key", Value: key.String()})
		return
	}
	s.metrics.PendingReminders.Set(float64(s.store.Len()))
}

// Sweep re-arms any stored record that lost its timer (a crash between Put
// and Schedule, or a failed delete after Cancel) and compacts non-pending
// leftovers out of the store. It runs on the configured cron schedule and may
// be called manually.
func (s *Service) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rearmed := 0
	for _, rec := range s.store.GetAll() {
		if rec.State != StatePending {
			continue
		}
		key := rec.Key()
		if !s.sched.Armed(key) {
			s.sched.Schedule(key, rec.FireAt, s.fire)
			rearmed++
		}
	}

	removed, err := s.store.Compact()
	if err != nil {
		s.log.Error("store compaction failed", err)
	}

	if rearmed > 0 || removed > 0 {
		s.log.Info("maintenance sweep finished",
			logger.Field{Key: "rearmed", Value: rearmed},
			logger.Field{Key: "removed", Value: removed})
	}
}

func filterChat(records []JobRecord, chatID int64) []JobRecord {
	filtered := make([]JobRecord, 0, len(records))
	for _, rec := range records {
		if rec.ChatID == chatID {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

func sortByDueDate(records []JobRecord) []JobRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DueDate.Before(records[j].DueDate)
	})
	return records
}
