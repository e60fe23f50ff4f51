package service

import (
	"context"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionService_BootstrapNewUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.sessions.Bootstrap(ctx, "1", "Ann", "ann")
	require.NoError(t, err)
	assert.True(t, sess.Created)
	require.NotNil(t, sess.Streak)
	assert.Equal(t, domain.StreakStarted, sess.Streak.Transition)
	assert.Equal(t, 1, sess.Streak.CurrentStreak)
	assert.True(t, sess.Reset.Daily)
	assert.True(t, sess.Reset.Weekly)

	assert.Equal(t, "Ann", sess.User.Name)
	assert.Equal(t, 3, sess.User.Score.NoOfTickets)
	assert.Equal(t, "2024-01-01", sess.User.LastReset.Daily)
	assert.Equal(t, 1, sess.User.Streak.CurrentStreakCount)
	assert.Equal(t, 1, sess.User.Streak.LongestStreakCount)
	env.sink.AssertCalled(t, "StreakChanged", mock.Anything, mock.MatchedBy(func(e domain.StreakChanged) bool {
		return e.UserID == "1" && e.Transition == domain.StreakStarted
	}))

	entries, err := env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.HistoryActionDaily, entries[0].Action)
}

func TestSessionService_BootstrapNextDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.Bootstrap(ctx, "1", "Ann", "ann")
	require.NoError(t, err)

	env.clock.Add(24 * time.Hour)
	sess, err := env.sessions.Bootstrap(ctx, "1", "Ann B", "ann")
	require.NoError(t, err)
	assert.False(t, sess.Created)
	require.NotNil(t, sess.Streak)
	assert.Equal(t, 2, sess.Streak.CurrentStreak)
	assert.True(t, sess.Reset.Daily)
	assert.False(t, sess.Reset.Weekly)
	assert.Equal(t, "Ann B", sess.User.Name)

	env.sink.AssertCalled(t, "StreakChanged", mock.Anything, mock.MatchedBy(func(e domain.StreakChanged) bool {
		return e.Transition == domain.StreakContinued
	}))
}
