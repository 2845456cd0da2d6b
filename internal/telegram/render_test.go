package telegram

import (
	"testing"

	"github.com/muellbot/muellbot/internal/reminder"
	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, "24\\.12\\.2025", escapeMarkdownV2("24.12.2025"))
	assert.Equal(t, "\\*bold\\* \\_it\\_ \\!", escapeMarkdownV2("*bold* _it_ !"))
	assert.Equal(t, "plain text", escapeMarkdownV2("plain text"))
}

func TestRenderNotification(t *testing.T) {
	text := renderNotification(reminder.Notification{ChatID: 42, Category: reminder.CategoryPlastik})

	want := "\U0001F5D1\U0001F5D1\U0001F5D1*Tomorrow is trash date\\!* \U0001F5D1\U0001F5D1\U0001F5D1\n\n_plastik_: \U00002678\U0001F36C"
	assert.Equal(t, want, text)
}

func TestRenderNotificationCoversAllCategories(t *testing.T) {
	for _, cat := range reminder.Categories() {
		text := renderNotification(reminder.Notification{Category: cat})
		assert.Contains(t, text, "_"+string(cat)+"_: ")
		assert.NotEmpty(t, categoryEmojis[cat], "category %s has no emoji", cat)
	}
}

func TestUsageText(t *testing.T) {
	assert.Equal(t, "/add dd.mm.yyyy [bio/rest/papier/plastik]", usageText("/add"))
	assert.Equal(t, "/remove dd.mm.yyyy [bio/rest/papier/plastik]", usageText("/remove"))
}
