package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/middleware"
	"github.com/set-night/earnapp/internal/service"
	"github.com/set-night/earnapp/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	sess := middleware.GetSession(ctx)
	if sess == nil {
		return
	}
	user := sess.User
	chatID := update.Message.Chat.ID

	h.applyStartPayload(ctx, sess, update.Message.Text)

	score, err := h.scores.Get(ctx, user.ID)
	if err != nil {
		slog.Error("load score", "user_id", user.ID, "error", err)
		score = user.Score
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👋 Hi, *%s*!\n\n", user.Name)
	if sess.Streak != nil {
		sb.WriteString(sess.Streak.Message + "\n")
	}
	fmt.Fprintf(&sb, "🔥 Streak: %d days (best %d)\n", user.Streak.CurrentStreakCount, user.Streak.LongestStreakCount)
	fmt.Fprintf(&sb, "🏆 Score: %s\n", score.TotalScore.String())
	fmt.Fprintf(&sb, "🎟 Tickets: %d\n\n", score.NoOfTickets)
	sb.WriteString("📋 *Commands:*\n" +
		"/tasks — Earn points with tasks\n" +
		"/play — Spend a ticket on a game\n" +
		"/farm — Farm points over time\n" +
		"/invite — Invite friends\n" +
		"/friends — Your network\n" +
		"/score — Score breakdown\n" +
		"/history — Recent rewards")

	kb := telegram.InlineKeyboard(
		telegram.ButtonRow(
			telegram.InlineButton("📋 Tasks", "tasks_daily_0"),
			telegram.InlineButton("🌾 Farming", "farm_start"),
		),
	)
	if err := telegram.SendText(ctx, b, chatID, sb.String(), kb); err != nil {
		slog.Error("send welcome", "error", err)
	}
}

// applyStartPayload handles the deep link of a /start message. Referrals are
// processed on every start that carries one: repeats are no-ops, and a start
// after a failed attempt or after an earlier plain visit still pays out.
func (h *Handler) applyStartPayload(ctx context.Context, sess *service.Session, text string) {
	user := sess.User

	var referrerID string
	if _, payload, ok := strings.Cut(text, " "); ok {
		referrerID, _ = service.ParseStartParam(strings.TrimSpace(payload))
	}

	if sess.Created {
		h.tgLogger.LogRegistration(user.ID, user.Name, user.Username, referrerID)
	}
	if referrerID != "" {
		h.processReferral(ctx, referrerID, user)
	}
}

func (h *Handler) processReferral(ctx context.Context, referrerID string, user *domain.User) {
	out, err := h.referrals.Process(ctx, referrerID, user.ID, domain.RefereeProfile{
		Name:     user.Name,
		Username: user.Username,
	})
	switch {
	case errors.Is(err, domain.ErrSelfReferral), errors.Is(err, domain.ErrUserNotFound):
		slog.Warn("referral rejected", "referrer_id", referrerID, "referee_id", user.ID, "error", err)
	case err != nil:
		slog.Error("process referral", "referrer_id", referrerID, "referee_id", user.ID, "error", err)
		h.tgLogger.LogError(err, "referral")
	case out.AlreadyProcessed:
		slog.Debug("referral already processed", "referee_id", user.ID)
	}
}
