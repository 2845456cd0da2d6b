package telegram

import (
	"context"
	"sync"
	"testing"

	"github.com/muellbot/muellbot/internal/config"
	"github.com/muellbot/muellbot/internal/logger"
	"github.com/muellbot/muellbot/internal/reminder"
	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/require"
)

// mockBot implements BotInterface and records every sent message.
type mockBot struct {
	mu       sync.Mutex
	sent     []telego.SendMessageParams
	sendErr  error
	commands *telego.SetMyCommandsParams
	updates  chan telego.Update
}

func newMockBot() *mockBot {
	return &mockBot{updates: make(chan telego.Update, 16)}
}

func (m *mockBot) GetMe(context.Context) (*telego.User, error) {
	return &telego.User{ID: 1, IsBot: true, Username: "muellbot"}, nil
}

func (m *mockBot) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, *params)
	return &telego.Message{MessageID: len(m.sent)}, nil
}

func (m *mockBot) SetMyCommands(_ context.Context, params *telego.SetMyCommandsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = params
	return nil
}

func (m *mockBot) UpdatesViaLongPolling(context.Context, *telego.GetUpdatesParams, ...telego.LongPollingOption) (<-chan telego.Update, error) {
	return m.updates, nil
}

func (m *mockBot) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockBot) lastSent(t *testing.T) telego.SendMessageParams {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

// stubService implements ReminderService with canned responses.
type stubService struct {
	addRec    reminder.JobRecord
	addErr    error
	removed   bool
	removeErr error
	records   []reminder.JobRecord

	lastChatID int64
	lastDate   string
	lastCat    string
}

func (s *stubService) Add(chatID int64, dueDate, category string) (reminder.JobRecord, error) {
	s.lastChatID, s.lastDate, s.lastCat = chatID, dueDate, category
	return s.addRec, s.addErr
}

func (s *stubService) Remove(chatID int64, dueDate, category string) (bool, error) {
	s.lastChatID, s.lastDate, s.lastCat = chatID, dueDate, category
	return s.removed, s.removeErr
}

func (s *stubService) List(chatID int64) []reminder.JobRecord {
	s.lastChatID = chatID
	return s.records
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// testConnector wires a connector around the mock bot without going through
// Start, which would dial the real API.
func testConnector(t *testing.T, cfg config.TelegramConfig, bot BotInterface, svc ReminderService) *Connector {
	t.Helper()
	conn := New(cfg, testLogger(t))
	conn.bot = bot
	conn.username = "muellbot"
	conn.ctx, conn.cancel = context.WithCancel(context.Background())
	t.Cleanup(conn.cancel)
	if svc != nil {
		conn.SetService(svc)
	}
	return conn
}

func textUpdate(chatID int64, text string) telego.Update {
	return telego.Update{
		Message: &telego.Message{
			MessageID: 1,
			Text:      text,
			Chat:      telego.Chat{ID: chatID, Type: "private"},
			From:      &telego.User{ID: chatID, Username: "tester"},
		},
	}
}

func mustRecord(t *testing.T, chatID int64, date string, cat reminder.Category) reminder.JobRecord {
	t.Helper()
	due, err := reminder.ParseDueDate(date)
	require.NoError(t, err)
	return reminder.JobRecord{
		ChatID:   chatID,
		DueDate:  due,
		Category: cat,
		State:    reminder.StatePending,
	}
}
