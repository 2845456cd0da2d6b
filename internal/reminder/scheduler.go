package reminder

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/muellbot/muellbot/internal/logger"
)

// FireFunc is invoked when an armed reminder reaches its fire time.
type FireFunc func(key JobKey)

type entryState int

const (
	entryArmed entryState = iota
	entryFired
	entryCancelled
)

// entry tracks one armed timer. An entry transitions Armed->Fired or
// Armed->Cancelled exactly once and never leaves a terminal state.
type entry struct {
	timer *clock.Timer
	state entryState
	at    time.Time
}

// Scheduler fires a registered callback per key no earlier than its target
// instant, at most once, with support for cancellation before firing. It is
// purely in-memory; durable state lives in the Store and timers are rebuilt
// from it on startup.
type Scheduler struct {
	clk clock.Clock
	log *logger.Logger

	mu      sync.Mutex
	entries map[JobKey]*entry
}

// NewScheduler creates a scheduler using the given clock. Production code
// passes clock.New(); tests use a mock clock to control time.
func NewScheduler(clk clock.Clock, log *logger.Logger) *Scheduler {
	return &Scheduler{
		clk:     clk,
		log:     log,
		entries: make(map[JobKey]*entry),
	}
}

// Schedule arms a timer for the key. An existing armed entry for the same key
// is atomically replaced: the old timer is cancelled and never fires. A
// target instant in the past fires as soon as the timer goroutine runs, not
// at some later boundary; this is what recovers reminders missed during
// downtime.
func (s *Scheduler) Schedule(key JobKey, at time.Time, fire FireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok && old.state == entryArmed {
		old.timer.Stop()
		old.state = entryCancelled
		s.log.Debug("replaced armed timer", logger.Field{Key: "key", Value: key.String()})
	}

	e := &entry{state: entryArmed, at: at}

	delay := at.Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}
	e.timer = s.clk.AfterFunc(delay, func() {
		s.fireEntry(key, e, fire)
	})

	s.entries[key] = e

	s.log.Debug("timer armed",
		logger.Field{Key: "key", Value: key.String()},
		logger.Field{Key: "at", Value: at},
		logger.Field{Key: "delay", Value: delay})
}

// fireEntry performs the Armed->Fired transition and invokes the callback.
// The transition happens under the scheduler lock, so a concurrent Cancel
// either wins (the callback never runs) or loses (Cancel returns false);
// never both.
func (s *Scheduler) fireEntry(key JobKey, e *entry, fire FireFunc) {
	s.mu.Lock()
	if e.state != entryArmed {
		s.mu.Unlock()
		return
	}
	e.state = entryFired
	if cur, ok := s.entries[key]; ok && cur == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	fire(key)
}

// Cancel transitions an armed entry to cancelled and reports whether an armed
// entry was found. Cancelling an unknown key, or one that already fired, is a
// no-op returning false.
func (s *Scheduler) Cancel(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.state != entryArmed {
		return false
	}

	e.timer.Stop()
	e.state = entryCancelled
	delete(s.entries, key)

	s.log.Debug("timer cancelled", logger.Field{Key: "key", Value: key.String()})

	return true
}

// Armed reports whether an armed entry exists for the key.
func (s *Scheduler) Armed(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && e.state == entryArmed
}

// Len returns the number of armed entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels all armed entries.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if e.state == entryArmed {
			e.timer.Stop()
			e.state = entryCancelled
		}
		delete(s.entries, key)
	}

	s.log.Info("scheduler stopped")
}
