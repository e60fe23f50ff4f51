package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/earnapp/internal/config"
	"github.com/shopspring/decimal"
)

// TelegramLogger mirrors reward events to forum topics of an admin chat.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewTelegramLogger(b *bot.Bot, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError        LogType = "error"
	LogTypeRegistration LogType = "registration"
	LogTypeReferral     LogType = "referral"
	LogTypeClaim        LogType = "claim"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, where string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		where, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogRegistration(userID, name, username, referredBy string) {
	msg := fmt.Sprintf("👤 *New Player*\n\n*ID:* `%s`\n*Name:* %s\n*Username:* @%s",
		userID, name, username)
	if referredBy != "" {
		msg += fmt.Sprintf("\n*Referred by:* `%s`", referredBy)
	}
	l.Log(LogTypeRegistration, msg)
}

func (l *TelegramLogger) LogReferral(referrerID, refereeID string, bonus decimal.Decimal) {
	msg := fmt.Sprintf("🤝 *Referral*\n\n*Referrer:* `%s`\n*Referee:* `%s`\n*Referee bonus:* %s",
		referrerID, refereeID, bonus.String())
	l.Log(LogTypeReferral, msg)
}

func (l *TelegramLogger) LogClaim(userID, title string, points decimal.Decimal) {
	msg := fmt.Sprintf("✅ *Task Claimed*\n\n*User:* `%s`\n*Task:* %s\n*Points:* %s",
		userID, title, points.String())
	l.Log(LogTypeClaim, msg)
}

func (l *TelegramLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	case LogTypeReferral:
		return l.cfg.LogTopicReferral
	case LogTypeClaim:
		return l.cfg.LogTopicClaim
	default:
		return 0
	}
}
