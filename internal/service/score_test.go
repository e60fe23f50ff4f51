package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreService_CreditAbsentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	score, err := env.scores.Credit(ctx, "1", domain.ComponentTask, points(25))
	require.NoError(t, err)

	assert.True(t, score.TaskScore.Equal(points(25)))
	assert.True(t, score.TotalScore.Equal(points(25)))
	assert.True(t, score.WeeklyPoints.Equal(points(25)))
	assert.True(t, score.TaskUpdatedAt.Equal(monday))
}

func TestScoreService_NegativeCreditIsNotClamped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "1")

	_, err := env.scores.Credit(ctx, "1", domain.ComponentGame, points(3))
	require.NoError(t, err)
	_, err = env.scores.Credit(ctx, "1", domain.ComponentTask, points(10))
	require.NoError(t, err)

	score, err := env.scores.Credit(ctx, "1", domain.ComponentGame, points(-5))
	require.NoError(t, err)

	assert.True(t, score.GameScore.Equal(points(-2)), "game_score = %s", score.GameScore)
	assert.True(t, score.TotalScore.Equal(points(8)), "total_score = %s", score.TotalScore)
	assert.True(t, score.Consistent())
}

func TestScoreService_UnknownComponent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.scores.Credit(context.Background(), "1", domain.ScoreComponent("bogus"), points(1))
	assert.ErrorIs(t, err, domain.ErrUnknownComponent)
}

func TestScoreService_HealsDriftedTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "1")

	u.Score.TaskScore = points(10)
	u.Score.TotalScore = points(999)
	require.NoError(t, env.store.Update(ctx, map[string]any{ledger.UserPath("1"): u}))

	score, err := env.scores.Credit(ctx, "1", domain.ComponentNews, points(5))
	require.NoError(t, err)
	assert.True(t, score.TotalScore.Equal(points(15)))
}

func TestScoreService_ConcurrentCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "1")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := domain.Components[i%len(domain.Components)]
			_, err := env.scores.Credit(ctx, "1", c, points(2))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	score, err := env.scores.Get(ctx, "1")
	require.NoError(t, err)
	assert.True(t, score.TotalScore.Equal(points(2*n)))
	assert.True(t, score.Consistent())
}

func TestScoreService_WeeklyPointsRollOver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "1")

	_, err := env.scores.Credit(ctx, "1", domain.ComponentTask, points(10))
	require.NoError(t, err)

	env.clock.Add(3 * 24 * time.Hour)
	score, err := env.scores.Credit(ctx, "1", domain.ComponentTask, points(5))
	require.NoError(t, err)
	assert.True(t, score.WeeklyPoints.Equal(points(15)))

	env.clock.Add(7 * 24 * time.Hour)
	score, err = env.scores.Credit(ctx, "1", domain.ComponentTask, points(4))
	require.NoError(t, err)
	assert.True(t, score.WeeklyPoints.Equal(points(4)))
	assert.Equal(t, "2024-01-08", score.WeeklyUpdatedAt.Format("2006-01-02"))
}

func TestScoreService_CommitFailure(t *testing.T) {
	env := newTestEnv(t)
	scores := NewScoreService(exhaustedStore{env.store}, env.cal)

	_, err := scores.Credit(context.Background(), "1", domain.ComponentTask, points(1))
	assert.ErrorIs(t, err, domain.ErrCommitFailure)
	assert.ErrorIs(t, err, ledger.ErrMaxRetries)
}
