package service

import (
	"context"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedStreak(t *testing.T, env *testEnv, id string, st domain.Streak) {
	t.Helper()
	u := env.createUser(t, id)
	u.Streak = st
	require.NoError(t, env.store.Update(context.Background(), map[string]any{ledger.UserPath(id): u}))
}

func TestStreakService_Transitions(t *testing.T) {
	// Today is 2024-01-10 (D).
	today := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		before      domain.Streak
		wantCurrent int
		wantLongest int
		wantEvent   domain.StreakTransition
	}{
		{"first check", domain.Streak{}, 1, 1, domain.StreakStarted},
		{"yesterday", domain.Streak{CurrentStreakCount: 3, LongestStreakCount: 5, LastStreakCheckDateUTC: "2024-01-09"}, 4, 5, domain.StreakContinued},
		{"yesterday beats longest", domain.Streak{CurrentStreakCount: 5, LongestStreakCount: 5, LastStreakCheckDateUTC: "2024-01-09"}, 6, 6, domain.StreakContinued},
		{"two days ago", domain.Streak{CurrentStreakCount: 4, LongestStreakCount: 6, LastStreakCheckDateUTC: "2024-01-08"}, 1, 6, domain.StreakBroken},
		{"long gap", domain.Streak{CurrentStreakCount: 9, LongestStreakCount: 9, LastStreakCheckDateUTC: "2023-11-01"}, 1, 9, domain.StreakBroken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			seedStreak(t, env, "1", tt.before)
			env.clock.Set(today)

			ev, err := env.streaks.Check(context.Background(), "1")
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, tt.wantEvent, ev.Transition)
			assert.Equal(t, tt.wantCurrent, ev.CurrentStreak)
			assert.NotEmpty(t, ev.Message)

			u := env.user(t, "1")
			assert.Equal(t, tt.wantCurrent, u.Streak.CurrentStreakCount)
			assert.Equal(t, tt.wantLongest, u.Streak.LongestStreakCount)
			assert.Equal(t, "2024-01-10", u.Streak.LastStreakCheckDateUTC)

			env.sink.AssertCalled(t, "StreakChanged", mock.Anything, mock.MatchedBy(func(e domain.StreakChanged) bool {
				return e.UserID == "1" && e.CurrentStreak == tt.wantCurrent
			}))
		})
	}
}

func TestStreakService_SameDayIsNoop(t *testing.T) {
	env := newTestEnv(t)
	seedStreak(t, env, "1", domain.Streak{CurrentStreakCount: 4, LongestStreakCount: 7, LastStreakCheckDateUTC: "2024-01-01"})

	ev, err := env.streaks.Check(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, ev)

	u := env.user(t, "1")
	assert.Equal(t, 4, u.Streak.CurrentStreakCount)
	assert.Equal(t, 7, u.Streak.LongestStreakCount)
	env.sink.AssertNotCalled(t, "StreakChanged", mock.Anything, mock.Anything)
}

func TestStreakService_UsesUTCDays(t *testing.T) {
	env := newTestEnv(t)
	seedStreak(t, env, "1", domain.Streak{CurrentStreakCount: 1, LongestStreakCount: 1, LastStreakCheckDateUTC: "2024-01-01"})

	// 23:30 UTC on the same day is still the same streak day.
	env.clock.Set(time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC))
	ev, err := env.streaks.Check(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestStreakService_MirrorsToReferrer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "A")

	_, err := env.referral.Process(ctx, "A", "B", domain.RefereeProfile{Name: "Bob"})
	require.NoError(t, err)

	ev, err := env.streaks.Check(ctx, "B")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, domain.StreakStarted, ev.Transition)

	env.clock.Add(24 * time.Hour)
	ev, err = env.streaks.Check(ctx, "B")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, 2, ev.CurrentStreak)

	a := env.user(t, "A")
	assert.Equal(t, 2, a.Referrals["B"].CurrentStreak)
}

func TestStreakService_NewUserStartsStreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, created, err := env.users.FindOrCreate(ctx, "1", "Ann", "ann")
	require.NoError(t, err)
	require.True(t, created)

	ev, err := env.streaks.Check(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, domain.StreakStarted, ev.Transition)
	assert.Equal(t, 1, ev.CurrentStreak)
	assert.Equal(t, 1, ev.LongestStreak)
	env.sink.AssertCalled(t, "StreakChanged", mock.Anything, mock.Anything)
}

func TestStreakService_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.streaks.Check(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
