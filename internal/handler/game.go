package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/middleware"
	"github.com/set-night/earnapp/internal/telegram"
	"github.com/shopspring/decimal"
)

// pointsPerPip converts the value of a rolled die into game points.
const pointsPerPip = 10

func (h *Handler) handlePlay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	left, err := h.games.Start(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoTickets) {
			telegram.SendText(ctx, b, chatID, "🎟 No tickets left. New tickets arrive tomorrow.", nil)
			return
		}
		slog.Error("start game", "user_id", user.ID, "error", err)
		return
	}

	msg, err := b.SendDice(ctx, &bot.SendDiceParams{
		ChatID: chatID,
		Emoji:  "🎲",
	})
	if err != nil || msg.Dice == nil {
		slog.Error("roll dice", "user_id", user.ID, "error", err)
		if _, err := h.games.Refund(ctx, user.ID); err != nil {
			slog.Error("refund ticket", "user_id", user.ID, "error", err)
		}
		return
	}

	points := decimal.NewFromInt(int64(msg.Dice.Value * pointsPerPip))
	score, err := h.games.Finish(ctx, user.ID, points)
	if err != nil {
		slog.Error("finish game", "user_id", user.ID, "error", err)
		h.tgLogger.LogError(err, "game")
		return
	}

	// Let the animation finish before revealing the result.
	select {
	case <-ctx.Done():
		return
	case <-time.After(3 * time.Second):
	}

	telegram.SendText(ctx, b, chatID, fmt.Sprintf(
		"🎮 You scored *%s*!\n🏆 Total: %s\n🎟 Tickets left: %d",
		points.String(), score.TotalScore.String(), left), nil)
}
