// Package telegram provides the Telegram surface of the bot using the Telego
// library. It handles the /add, /remove, /list and /help commands over long
// polling and delivers reminder notifications back to the chat.
//
// Features:
//   - Long polling for receiving updates
//   - Whitelist-based chat authorization
//   - Graceful shutdown handling
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/muellbot/muellbot/internal/config"
	"github.com/muellbot/muellbot/internal/logger"
	"github.com/muellbot/muellbot/internal/reminder"
	"github.com/muellbot/muellbot/internal/version"
	"github.com/mymmrac/telego"
)

// Connector represents the Telegram bot connector. It implements
// reminder.Notifier so the reminder service can deliver through it.
type Connector struct {
	cfg            config.TelegramConfig
	logger         *logger.Logger
	commandHandler *CommandHandler

	mu       sync.RWMutex
	bot      BotInterface
	username string
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new Telegram connector
func New(cfg config.TelegramConfig, log *logger.Logger) *Connector {
	conn := &Connector{
		cfg:            cfg,
		logger:         log,
		commandHandler: NewCommandHandler(log),
	}
	conn.commandHandler.SetConnector(conn)
	return conn
}

// SetService attaches the reminder service the commands operate on. Must be
// called before Start.
func (c *Connector) SetService(svc ReminderService) {
	c.commandHandler.SetService(svc)
}

// Start initializes the Telegram bot and starts listening for updates
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("starting telegram connector")

	if c.cfg.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	bot, err := telego.NewBot(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	c.mu.Lock()
	c.bot = NewBotAdapter(bot)
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	botUser, err := c.bot.GetMe(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	c.mu.Lock()
	c.username = botUser.Username
	c.mu.Unlock()

	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	if err := c.registerCommands(); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to register bot commands", err)
	}

	if err := c.sendStartupMessage(); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to send startup message", err)
	}

	go c.pollUpdates()

	return nil
}

// Stop gracefully stops the Telegram connector
func (c *Connector) Stop() error {
	c.logger.Info("stopping telegram connector")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.bot = nil

	c.logger.Info("telegram connector stopped gracefully")

	return nil
}

// Notify delivers a reminder notification to its chat. It satisfies
// reminder.Notifier.
func (c *Connector) Notify(ctx context.Context, n reminder.Notification) error {
	c.mu.RLock()
	bot := c.bot
	c.mu.RUnlock()

	if bot == nil {
		return fmt.Errorf("telegram bot is not started")
	}

	params := &telego.SendMessageParams{
		ChatID:              telego.ChatID{ID: n.ChatID},
		Text:                renderNotification(n),
		ParseMode:           telego.ModeMarkdownV2,
		DisableNotification: c.cfg.QuietMode,
	}

	sendCtx, cancel := c.sendTimeout(ctx)
	defer cancel()

	if _, err := bot.SendMessage(sendCtx, params); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	c.logger.InfoCtx(ctx, "notification delivered",
		logger.Field{Key: "chat_id", Value: n.ChatID},
		logger.Field{Key: "category", Value: string(n.Category)},
		logger.Field{Key: "correlation_id", Value: n.CorrelationID})

	return nil
}

// registerCommands registers bot commands with Telegram
func (c *Connector) registerCommands() error {
	commands := &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "add", Description: "Add a trash date: /add dd.mm.yyyy category"},
			{Command: "remove", Description: "Remove a trash date: /remove dd.mm.yyyy category"},
			{Command: "list", Description: "List noted trash dates"},
			{Command: "help", Description: "Show usage"},
		},
	}

	if err := c.bot.SetMyCommands(c.ctx, commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	c.logger.Info("bot commands registered successfully")

	return nil
}

// isAllowedChat checks if the chat is allowed based on the whitelist
// configuration. An empty whitelist allows all chats.
func (c *Connector) isAllowedChat(chatID int64) bool {
	if len(c.cfg.AllowedChats) == 0 {
		return true
	}

	id := strconv.FormatInt(chatID, 10)
	for _, allowed := range c.cfg.AllowedChats {
		if allowed == id {
			return true
		}
	}
	return false
}

// sendStartupMessage sends a startup message to all whitelisted chats
func (c *Connector) sendStartupMessage() error {
	if len(c.cfg.AllowedChats) == 0 {
		c.logger.Info("no allowed chats configured, skipping startup message")
		return nil
	}

	message := version.FormatStartupMessage()

	for _, chat := range c.cfg.AllowedChats {
		chatID, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			c.logger.WarnCtx(c.ctx, "invalid chat ID in allowed_chats",
				logger.Field{Key: "chat_id", Value: chat})
			continue
		}

		params := &telego.SendMessageParams{
			ChatID:              telego.ChatID{ID: chatID},
			Text:                message,
			DisableNotification: c.cfg.QuietMode,
		}

		if _, err := c.bot.SendMessage(c.ctx, params); err != nil {
			c.logger.ErrorCtx(c.ctx, "failed to send startup message", err,
				logger.Field{Key: "chat_id", Value: chat})
			continue
		}

		c.logger.InfoCtx(c.ctx, "startup message sent",
			logger.Field{Key: "chat_id", Value: chat})
	}

	return nil
}

// pollUpdates runs the long polling loop until the connector context ends.
func (c *Connector) pollUpdates() {
	c.logger.Info("starting long polling for telegram updates")

	updates, err := c.bot.UpdatesViaLongPolling(c.ctx, &telego.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to start long polling", err)
		return
	}

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return
			}

			if err := c.handleUpdate(update); err != nil {
				c.logger.ErrorCtx(c.ctx, "failed to handle update", err)
			}
		}
	}
}

// handleUpdate processes a single Telegram update. Only text messages are
// relevant; everything else is skipped.
func (c *Connector) handleUpdate(update telego.Update) error {
	if update.Message == nil {
		return nil
	}
	if update.Message.Text == "" {
		return nil
	}

	return c.commandHandler.Handle(c.ctx, update.Message)
}

// sendReply sends a plain reply to a chat, optionally with a parse mode.
func (c *Connector) sendReply(ctx context.Context, chatID int64, text, parseMode string) error {
	c.mu.RLock()
	bot := c.bot
	c.mu.RUnlock()

	if bot == nil {
		return fmt.Errorf("telegram bot is not started")
	}

	params := &telego.SendMessageParams{
		ChatID:              telego.ChatID{ID: chatID},
		Text:                text,
		ParseMode:           parseMode,
		DisableNotification: c.cfg.QuietMode,
	}

	sendCtx, cancel := c.sendTimeout(ctx)
	defer cancel()

	if _, err := bot.SendMessage(sendCtx, params); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

func (c *Connector) botUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// sendTimeout derives the per-send timeout context.
func (c *Connector) sendTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(c.cfg.SendTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
