package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	n   int64
	err error
}

func (s *stubCounter) Incr(context.Context, string) (int64, error) {
	s.n++
	return s.n, s.err
}

func messageUpdate(fromID int64, name string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			Chat: models.Chat{ID: fromID, Type: "private"},
			From: &models.User{ID: fromID, FirstName: name, Username: "u" + name},
			Text: "/start",
		},
	}
}

func TestRateLimit_PassesCallbacks(t *testing.T) {
	counter := &stubCounter{}
	called := false
	h := RateLimit(counter)(func(context.Context, *bot.Bot, *models.Update) { called = true })

	h(context.Background(), nil, &models.Update{CallbackQuery: &models.CallbackQuery{ID: "1"}})
	assert.True(t, called)
	assert.Zero(t, counter.n)
}

func TestRateLimit_UnderLimit(t *testing.T) {
	counter := &stubCounter{}
	calls := 0
	h := RateLimit(counter)(func(context.Context, *bot.Bot, *models.Update) { calls++ })

	for i := 0; i < 5; i++ {
		h(context.Background(), nil, messageUpdate(1, "a"))
	}
	assert.Equal(t, 5, calls)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	counter := &stubCounter{n: 1000, err: errors.New("redis down")}
	called := false
	h := RateLimit(counter)(func(context.Context, *bot.Bot, *models.Update) { called = true })

	h(context.Background(), nil, messageUpdate(1, "a"))
	assert.True(t, called)
}

func TestRecover(t *testing.T) {
	h := Recover()(func(context.Context, *bot.Bot, *models.Update) { panic("boom") })
	assert.NotPanics(t, func() { h(context.Background(), nil, &models.Update{ID: 7}) })
}

func TestUserLoader_BootstrapsSender(t *testing.T) {
	store := ledger.NewMemoryStore()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cal := calendar.New(time.UTC, func() time.Time { return now })
	history := service.NewHistoryService(store, cal)
	sessions := service.NewSessionService(
		service.NewUserService(store, cal),
		service.NewStreakService(store, cal, domain.NopSink{}),
		service.NewResetService(store, cal, history, false),
	)

	var got *service.Session
	h := UserLoader(sessions)(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got = GetSession(ctx)
	})
	h(context.Background(), nil, messageUpdate(42, "Ann"))

	require.NotNil(t, got)
	assert.True(t, got.Created)
	assert.Equal(t, "42", got.User.ID)
	assert.Equal(t, "Ann", got.User.Name)
	assert.Equal(t, 1, got.User.Streak.CurrentStreakCount)
}

func TestUserLoader_SkipsUpdatesWithoutSender(t *testing.T) {
	called := false
	h := UserLoader(nil)(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		called = true
		assert.Nil(t, GetUser(ctx))
	})
	h(context.Background(), nil, &models.Update{})
	assert.True(t, called)
}
