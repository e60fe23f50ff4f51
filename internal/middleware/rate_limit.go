package middleware

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/cache"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/metrics"
)

// RateLimit returns middleware that enforces per-minute rate limits.
func RateLimit(counter cache.RateCounter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID

			count, err := counter.Incr(ctx, strconv.FormatInt(chatID, 10))
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "chat_id", chatID)
				next(ctx, b, update)
				return
			}

			limit := int64(config.RateLimitRegular)
			if count > limit {
				metrics.RateLimited.Inc()
				slog.Debug("rate limited", "chat_id", chatID, "count", count, "limit", limit)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   "⏳ Too many requests. Please wait a moment.",
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
