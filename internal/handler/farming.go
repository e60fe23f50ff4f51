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
	"github.com/set-night/earnapp/internal/service"
	"github.com/set-night/earnapp/internal/telegram"
)

func (h *Handler) handleFarm(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	st, err := h.farming.Status(ctx, user.ID)
	if err != nil {
		slog.Error("farming status", "user_id", user.ID, "error", err)
		return
	}
	text, kb := renderFarming(st, time.Now())
	telegram.SendText(ctx, b, update.Message.Chat.ID, text, kb)
}

func renderFarming(st service.FarmingStatus, now time.Time) (string, *models.InlineKeyboardMarkup) {
	switch {
	case st.Ready:
		return "🌾 Your harvest is ready!",
			telegram.InlineKeyboard(telegram.ButtonRow(telegram.InlineButton("🧺 Claim", "farm_claim")))
	case st.Active:
		left := st.EndsAt.Sub(now).Round(time.Minute)
		return fmt.Sprintf("🌱 Farming in progress, %s left.", left), nil
	default:
		return "🌾 Start farming to collect points over time.",
			telegram.InlineKeyboard(telegram.ButtonRow(telegram.InlineButton("▶️ Start farming", "farm_start")))
	}
}

func (h *Handler) handleFarmStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}

	st, err := h.farming.Start(ctx, user.ID)
	if err != nil && !errors.Is(err, domain.ErrFarmingActive) {
		slog.Error("start farming", "user_id", user.ID, "error", err)
		answer(ctx, b, update, "❌ Could not start farming")
		return
	}
	if errors.Is(err, domain.ErrFarmingActive) {
		if st, err = h.farming.Status(ctx, user.ID); err != nil {
			answer(ctx, b, update, "❌ Could not load farming")
			return
		}
	}
	answer(ctx, b, update, "")
	text, kb := renderFarming(st, time.Now())
	telegram.EditText(ctx, b, chatID, msgID, text, kb)
}

func (h *Handler) handleFarmClaim(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}

	score, err := h.farming.Claim(ctx, user.ID)
	switch {
	case errors.Is(err, domain.ErrFarmingNotReady), errors.Is(err, domain.ErrFarmingNotStarted):
		answer(ctx, b, update, "🌱 Nothing to harvest yet")
		return
	case err != nil:
		slog.Error("claim farming", "user_id", user.ID, "error", err)
		answer(ctx, b, update, "❌ Claim failed, try again")
		return
	}

	answer(ctx, b, update, "🧺 Harvest collected")
	text, kb := renderFarming(service.FarmingStatus{}, time.Now())
	text = fmt.Sprintf("🏆 Total: %s\n\n%s", score.TotalScore.String(), text)
	telegram.EditText(ctx, b, chatID, msgID, text, kb)
}
