package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/config"
)

const MaxMessageLen = config.MaxTelegramMessageLen

// SplitMessage splits a message into chunks of at most maxLen characters,
// preferring to cut at a newline.
func SplitMessage(text string, maxLen int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		splitAt := maxLen
		if nl := strings.LastIndex(string(runes[:maxLen]), "\n"); nl > 0 {
			splitAt = utf8.RuneCountInString(string(runes[:maxLen])[:nl]) + 1
		}
		parts = append(parts, string(runes[:splitAt]))
		text = string(runes[splitAt:])
	}
	return append(parts, text)
}

// SendText sends Markdown text, splitting long messages. The keyboard goes
// with the last part. A part Telegram refuses to parse is resent as plain
// text.
func SendText(ctx context.Context, b *bot.Bot, chatID int64, text string, markup *models.InlineKeyboardMarkup) error {
	parts := SplitMessage(text, MaxMessageLen)
	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		if _, err := b.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := b.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

// EditText replaces the text and keyboard of a message sent by the bot.
func EditText(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, markup *models.InlineKeyboardMarkup) error {
	if utf8.RuneCountInString(text) > MaxMessageLen {
		text = string([]rune(text)[:MaxMessageLen-3]) + "..."
	}

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		params.ParseMode = ""
		if _, err := b.EditMessageText(ctx, params); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
	}
	return nil
}
