package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muellbot/muellbot/internal/logger"
	"github.com/muellbot/muellbot/internal/reminder"
	"github.com/mymmrac/telego"
)

// ReminderService is the slice of the reminder engine the command handler
// drives. The concrete service satisfies it.
type ReminderService interface {
	Add(chatID int64, dueDate, category string) (reminder.JobRecord, error)
	Remove(chatID int64, dueDate, category string) (bool, error)
	List(chatID int64) []reminder.JobRecord
}

// CommandHandler handles Telegram bot commands
type CommandHandler struct {
	logger    *logger.Logger
	svc       ReminderService
	connector *Connector
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(log *logger.Logger) *CommandHandler {
	return &CommandHandler{logger: log}
}

// SetConnector sets the connector reference (called after connector initialization)
func (h *CommandHandler) SetConnector(conn *Connector) {
	h.connector = conn
}

// SetService sets the reminder service the commands operate on.
func (h *CommandHandler) SetService(svc ReminderService) {
	h.svc = svc
}

// Handle processes a single text message. Non-command text is ignored.
func (h *CommandHandler) Handle(ctx context.Context, msg *telego.Message) error {
	command, args := parseCommand(msg.Text, h.connector.botUsername())
	if command == "" {
		return nil
	}

	chatID := msg.Chat.ID

	if !h.connector.isAllowedChat(chatID) {
		h.logger.WarnCtx(ctx, "command blocked - chat not in whitelist",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "command", Value: "/" + command})
		return nil
	}

	if h.svc == nil {
		return fmt.Errorf("reminder service not attached")
	}

	switch command {
	case "add":
		return h.handleAdd(ctx, chatID, args)
	case "remove":
		return h.handleRemove(ctx, chatID, args)
	case "list":
		return h.handleList(ctx, chatID)
	case "help", "start":
		return h.connector.sendReply(ctx, chatID, helpText(), "")
	default:
		h.logger.DebugCtx(ctx, "unknown command ignored",
			logger.Field{Key: "command", Value: "/" + command})
		return nil
	}
}

func (h *CommandHandler) handleAdd(ctx context.Context, chatID int64, args []string) error {
	usage := usageText("/add")
	if len(args) != 2 {
		return h.connector.sendReply(ctx, chatID, fmt.Sprintf("Wrong input use %s.", usage), "")
	}

	rec, err := h.svc.Add(chatID, args[0], args[1])
	switch {
	case errors.Is(err, reminder.ErrInvalidDate):
		return h.connector.sendReply(ctx, chatID, fmt.Sprintf("Given date was wrong, use %s", usage), "")
	case errors.Is(err, reminder.ErrInvalidCategory):
		return h.connector.sendReply(ctx, chatID, invalidCategoryText(), "")
	case err != nil:
		h.logger.ErrorCtx(ctx, "failed to add reminder", err,
			logger.Field{Key: "chat_id", Value: chatID})
		return h.connector.sendReply(ctx, chatID, "Something went wrong, please try again.", "")
	}

	reply := fmt.Sprintf("Noted %s for %s.", rec.Category, rec.DueDate)
	return h.connector.sendReply(ctx, chatID, reply, "")
}

func (h *CommandHandler) handleRemove(ctx context.Context, chatID int64, args []string) error {
	usage := usageText("/remove")
	if len(args) != 2 {
		return h.connector.sendReply(ctx, chatID, fmt.Sprintf("Wrong input use %s.", usage), "")
	}

	removed, err := h.svc.Remove(chatID, args[0], args[1])
	switch {
	case errors.Is(err, reminder.ErrInvalidDate):
		return h.connector.sendReply(ctx, chatID, fmt.Sprintf("Given date was wrong, use %s", usage), "")
	case errors.Is(err, reminder.ErrInvalidCategory):
		return h.connector.sendReply(ctx, chatID, invalidCategoryText(), "")
	case err != nil:
		h.logger.ErrorCtx(ctx, "failed to remove reminder", err,
			logger.Field{Key: "chat_id", Value: chatID})
		return h.connector.sendReply(ctx, chatID, "Could not remove trash date.", "")
	}

	if removed {
		return h.connector.sendReply(ctx, chatID, "Trash date succesfully removed.", "")
	}
	return h.connector.sendReply(ctx, chatID, "Could not remove trash date.", "")
}

func (h *CommandHandler) handleList(ctx context.Context, chatID int64) error {
	text := renderList(h.svc.List(chatID))
	return h.connector.sendReply(ctx, chatID, text, telego.ModeMarkdownV2)
}

// parseCommand splits a message into the command name and its arguments.
// A "@botname" suffix on the command is stripped when it addresses this bot.
// Returns an empty command for plain text.
func parseCommand(text, botUsername string) (string, []string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}

	fields := strings.Fields(text)
	command := strings.TrimPrefix(fields[0], "/")

	if at := strings.Index(command, "@"); at >= 0 {
		mention := command[at+1:]
		command = command[:at]
		if botUsername != "" && !strings.EqualFold(mention, botUsername) {
			// Addressed to another bot in a group chat.
			return "", nil
		}
	}

	if command == "" {
		return "", nil
	}

	return strings.ToLower(command), fields[1:]
}
