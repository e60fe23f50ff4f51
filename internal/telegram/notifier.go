package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/earnapp/internal/domain"
)

// Notifier delivers engine events to players as private messages.
type Notifier struct {
	bot    *bot.Bot
	logger *TelegramLogger
}

func NewNotifier(b *bot.Bot, logger *TelegramLogger) *Notifier {
	return &Notifier{bot: b, logger: logger}
}

func (n *Notifier) StreakChanged(ctx context.Context, e domain.StreakChanged) {
	n.send(ctx, e.UserID, e.Message)
}

func (n *Notifier) ReferralWelcome(ctx context.Context, e domain.ReferralWelcome) {
	n.send(ctx, e.RefereeID, fmt.Sprintf(
		"🎉 Welcome! You joined through a friend's invite and received %s bonus points.", e.Bonus.String()))
	n.logger.LogReferral(e.ReferrerID, e.RefereeID, e.Bonus)
}

func (n *Notifier) send(ctx context.Context, userID, text string) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		slog.Warn("cannot notify non-telegram user", "user_id", userID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		slog.Error("failed to send notification", "user_id", userID, "error", err)
	}
}
