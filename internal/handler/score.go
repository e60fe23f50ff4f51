package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/middleware"
	"github.com/set-night/earnapp/internal/telegram"
)

func (h *Handler) handleScore(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	score, err := h.scores.Get(ctx, user.ID)
	if err != nil {
		slog.Error("load score", "user_id", user.ID, "error", err)
		return
	}
	telegram.SendText(ctx, b, update.Message.Chat.ID, formatScore(score), nil)
}

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	text, kb, err := h.renderHistory(ctx, user.ID, 0)
	if err != nil {
		slog.Error("load history", "user_id", user.ID, "error", err)
		return
	}
	telegram.SendText(ctx, b, update.Message.Chat.ID, text, kb)
}

func (h *Handler) handleHistoryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	chatID, msgID, ok := callbackMessage(update)
	if user == nil || !ok {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "hist_"))
	if err != nil || page < 0 {
		answer(ctx, b, update, "")
		return
	}

	text, kb, err := h.renderHistory(ctx, user.ID, page)
	if err != nil {
		slog.Error("load history", "user_id", user.ID, "error", err)
		answer(ctx, b, update, "❌ Failed to load history")
		return
	}
	answer(ctx, b, update, "")
	telegram.EditText(ctx, b, chatID, msgID, text, kb)
}

func (h *Handler) renderHistory(ctx context.Context, userID string, page int) (string, *models.InlineKeyboardMarkup, error) {
	entries, err := h.history.List(ctx, userID, 0)
	if err != nil {
		return "", nil, err
	}
	return formatHistory(entries, page)
}

func formatHistory(entries []domain.HistoryEntry, page int) (string, *models.InlineKeyboardMarkup, error) {
	if len(entries) == 0 {
		return "📜 No rewards yet.", nil, nil
	}

	totalPages := pageCount(len(entries), config.HistoryPerPage)
	if page >= totalPages {
		page = totalPages - 1
	}
	start, end := pageBounds(page, len(entries), config.HistoryPerPage)

	var sb strings.Builder
	sb.WriteString("📜 *History*\n\n")
	for _, e := range entries[start:end] {
		fmt.Fprintf(&sb, "%s · %s · %s (%s)\n",
			e.Timestamp.UTC().Format("Jan 2 15:04"), e.Type, e.Action, formatPoints(e.Points))
	}

	var kb *models.InlineKeyboardMarkup
	if totalPages > 1 {
		kb = telegram.InlineKeyboard(telegram.PaginationRow(page, totalPages, "hist"))
	}
	return sb.String(), kb, nil
}
