package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/middleware"
	"github.com/set-night/earnapp/internal/telegram"
)

func (h *Handler) handleInvite(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	link, err := h.referrals.InviteLink(user.ID)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			slog.Error("invite links disabled", "setting", cfgErr.Setting, "reason", cfgErr.Reason)
		} else {
			slog.Error("build invite link", "user_id", user.ID, "error", err)
		}
		telegram.SendText(ctx, b, chatID, "⚠️ Invites are temporarily unavailable.", nil)
		return
	}

	text := fmt.Sprintf(
		"👥 *Invite friends*\n\n"+
			"Your invite link:\n`%s`\n\n"+
			"You get *%d* points for every friend who joins, they get *%d*.\n"+
			"Friends so far: %d",
		link, config.ReferrerBonus, config.RefereeBonus, len(user.Referrals),
	)
	kb := telegram.InlineKeyboard(telegram.ButtonRow(
		telegram.ShareButton("📤 Share", link, "Join me and get bonus points!"),
	))
	telegram.SendText(ctx, b, chatID, text, kb)
}

func (h *Handler) handleFriends(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	refs, err := h.referrals.Referrals(ctx, user.ID)
	if err != nil {
		slog.Error("list referrals", "user_id", user.ID, "error", err)
		return
	}
	telegram.SendText(ctx, b, update.Message.Chat.ID, formatReferrals(refs), nil)
}

func formatReferrals(refs []domain.Referral) string {
	if len(refs) == 0 {
		return "👥 No friends yet. Use /invite to get your link."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 *Your network* (%d)\n\n", len(refs))
	for _, r := range refs {
		fmt.Fprintf(&sb, "• %s · 🔥 %d · joined %s\n",
			r.Name, r.CurrentStreak, r.JoinTimestamp.UTC().Format("2006-01-02"))
	}
	return sb.String()
}
