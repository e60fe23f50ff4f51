package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/telegram"
)

func (h *Handler) handleAddTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !h.cfg.IsAdmin(update.Message.From.ID) {
		return
	}
	chatID := update.Message.Chat.ID

	t, err := parseAddTask(update.Message.Text)
	if err != nil {
		telegram.SendText(ctx, b, chatID, "❌ "+err.Error(), nil)
		return
	}

	if err := h.catalog.Put(ctx, t); err != nil {
		slog.Error("put task", "task_id", t.ID, "error", err)
		telegram.SendText(ctx, b, chatID, "❌ Failed to save the task.", nil)
		return
	}

	slog.Info("task saved", "category", t.Category, "task_id", t.ID, "admin_id", update.Message.From.ID)
	telegram.SendText(ctx, b, chatID, fmt.Sprintf(
		"✅ Saved *%s* in %s (%s, %s points)", t.Title, t.Category, t.Type, t.Points.String()), nil)
}
