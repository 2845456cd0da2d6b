package telegram

import (
	"fmt"
	"strings"

	"github.com/muellbot/muellbot/internal/reminder"
)

// categoryEmojis maps each waste category to the emoji run shown in the
// reminder notification.
var categoryEmojis = map[reminder.Category]string{
	reminder.CategoryBio:     "\U0001F346\U0001F955\U0001F96C\U0001F966",
	reminder.CategoryRest:    "\U0001F961",
	reminder.CategoryPapier:  "\U0001F4DC\U0001F4F0\U0001F3AB",
	reminder.CategoryPlastik: "\U00002678\U0001F36C",
}

const trashEmoji = "\U0001F5D1"

// markdownV2Escaper escapes the characters Telegram's MarkdownV2 parse mode
// treats as syntax.
var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

func escapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// renderNotification builds the MarkdownV2 text for a fired reminder.
func renderNotification(n reminder.Notification) string {
	banner := strings.Repeat(trashEmoji, 3)
	return fmt.Sprintf("%s*Tomorrow is trash date\\!* %s\n\n_%s_: %s",
		banner, banner, n.Category, categoryEmojis[n.Category])
}

// renderList builds the MarkdownV2 text for the /list reply. The header is
// sent even when no reminders are pending.
func renderList(records []reminder.JobRecord) string {
	var b strings.Builder
	b.WriteString("*I have noted the following dates:*\n")
	for _, rec := range records {
		b.WriteString(escapeMarkdownV2(rec.DueDate.String()))
		b.WriteString("  ")
		b.WriteString(string(rec.Category))
		b.WriteString("\n")
	}
	return b.String()
}

func usageText(command string) string {
	categories := make([]string, 0, len(reminder.Categories()))
	for _, cat := range reminder.Categories() {
		categories = append(categories, string(cat))
	}
	return fmt.Sprintf("%s dd.mm.yyyy [%s]", command, strings.Join(categories, "/"))
}

func helpText() string {
	return fmt.Sprintf("Hi! Use \n%s\n to add a trash date", usageText("/add"))
}

func invalidCategoryText() string {
	categories := make([]string, 0, len(reminder.Categories()))
	for _, cat := range reminder.Categories() {
		categories = append(categories, string(cat))
	}
	return "Invalid trash type, use one of" + strings.Join(categories, ",")
}
