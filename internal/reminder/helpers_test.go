package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muellbot/muellbot/internal/logger"
	"github.com/muellbot/muellbot/internal/metrics"
	"github.com/muellbot/muellbot/internal/retry"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir(), testLogger(t))
	require.NoError(t, err)
	return store
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDueDate(s)
	require.NoError(t, err)
	return d
}

func testKey(t *testing.T, chatID int64, date string, cat Category) JobKey {
	t.Helper()
	return JobKey{ChatID: chatID, DueDate: mustDate(t, date), Category: cat}
}

func testRecord(t *testing.T, chatID int64, date string, cat Category, fireAt time.Time) JobRecord {
	t.Helper()
	return JobRecord{
		ChatID:   chatID,
		DueDate:  mustDate(t, date),
		Category: cat,
		FireAt:   fireAt,
		State:    StatePending,
	}
}

// recordingNotifier collects delivered notifications and can be told to fail
// a number of times first.
type recordingNotifier struct {
	mu        sync.Mutex
	delivered []Notification
	failures  int
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failures > 0 {
		n.failures--
		return n.err
	}
	n.delivered = append(n.delivered, notification)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func (n *recordingNotifier) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.delivered[len(n.delivered)-1]
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func testService(t *testing.T, store *Store, sched *Scheduler, notifier Notifier) *Service {
	t.Helper()
	return NewService(store, sched, notifier, metrics.New(), testLogger(t), ServiceConfig{
		FireHour: 18,
		Location: time.UTC,
		Retry:    fastRetry(),
	})
}
