package middleware

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/service"
)

type ctxKey string

const SessionKey ctxKey = "session"

// GetSession extracts the bootstrapped session from context.
func GetSession(ctx context.Context) *service.Session {
	s, ok := ctx.Value(SessionKey).(*service.Session)
	if !ok {
		return nil
	}
	return s
}

// GetUser extracts user from context.
func GetUser(ctx context.Context) *domain.User {
	s := GetSession(ctx)
	if s == nil {
		return nil
	}
	return s.User
}

// UserLoader returns middleware that bootstraps the player behind every
// update: the profile is created on first contact and the streak and
// periodic resets are brought up to date.
func UserLoader(sessions *service.SessionService) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User
			if update.Message != nil {
				from = update.Message.From
			} else if update.CallbackQuery != nil {
				from = &update.CallbackQuery.From
			}

			if from == nil || from.IsBot {
				next(ctx, b, update)
				return
			}

			userID := strconv.FormatInt(from.ID, 10)
			sess, err := sessions.Bootstrap(ctx, userID, from.FirstName, from.Username)
			if err != nil {
				slog.Error("bootstrap user", "user_id", userID, "error", err)
			} else {
				ctx = context.WithValue(ctx, SessionKey, sess)
			}

			next(ctx, b, update)
		}
	}
}
