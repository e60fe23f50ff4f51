package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedResetUser(t *testing.T, env *testEnv, daily, weekly string) {
	t.Helper()
	u := env.createUser(t, "1")
	u.Score.NoOfTickets = 0
	u.LastReset = domain.LastReset{Daily: daily, Weekly: weekly}
	require.NoError(t, env.store.Update(context.Background(), map[string]any{ledger.UserPath("1"): u}))
}

func TestResetService_DailyScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedResetUser(t, env, "2024-01-01", "2024-01-01")

	daily := domain.Task{ID: "d1", Title: "Daily", Type: domain.TaskMisc, Category: domain.CategoryDaily}
	weekly := domain.Task{ID: "w1", Title: "Weekly", Type: domain.TaskMisc, Category: domain.CategoryWeekly}
	require.NoError(t, env.store.Update(ctx, map[string]any{
		ledger.ClaimPath("1", domain.CategoryDaily, "d1"):   domain.GrantedClaim(daily, monday),
		ledger.ClaimPath("1", domain.CategoryDaily, "d2"):   domain.PendingClaim,
		ledger.ClaimPath("1", domain.CategoryWeekly, "w1"): domain.GrantedClaim(weekly, monday),
	}))

	env.clock.Set(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	out, err := env.resets.Run(ctx, "1")
	require.NoError(t, err)
	assert.True(t, out.Daily)
	assert.False(t, out.Weekly)

	claims, err := env.tasks.Claims(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, claims[domain.CategoryDaily])
	assert.Len(t, claims[domain.CategoryWeekly], 1)

	u := env.user(t, "1")
	assert.Equal(t, 3, u.Score.NoOfTickets)
	assert.Equal(t, "2024-01-02", u.LastReset.Daily)
	assert.True(t, u.Score.TotalScore.IsZero(), "login reward is not credited")

	entries, err := env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Daily login reward", entries[0].Action)
	assert.True(t, entries[0].Points.Equal(points(10)))
	assert.Equal(t, "Home", entries[0].Type)

	out, err = env.resets.Run(ctx, "1")
	require.NoError(t, err)
	assert.False(t, out.Daily)

	entries, err = env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestResetService_ConcurrentSessionsLogOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedResetUser(t, env, "2024-01-01", "2024-01-01")
	env.clock.Set(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.resets.Run(ctx, "1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestResetService_KeepsClaimsMadeToday(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedResetUser(t, env, "2024-01-01", "2024-01-01")

	today := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	task := domain.Task{ID: "d1", Title: "Daily", Type: domain.TaskMisc, Category: domain.CategoryDaily}
	require.NoError(t, env.store.Update(ctx, map[string]any{
		ledger.ClaimPath("1", domain.CategoryDaily, "d1"): domain.GrantedClaim(task, today.Add(-time.Hour)),
	}))

	env.clock.Set(today)
	_, err := env.resets.Run(ctx, "1")
	require.NoError(t, err)

	rec, ok := env.claimRecord(t, "1", task)
	require.True(t, ok)
	assert.True(t, rec.Claimed)
}

func TestResetService_WeeklyCatchUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedResetUser(t, env, "2024-01-05", "2024-01-01")

	old := domain.Task{ID: "old", Title: "Old", Type: domain.TaskMisc, Category: domain.CategoryWeekly}
	fresh := domain.Task{ID: "fresh", Title: "Fresh", Type: domain.TaskMisc, Category: domain.CategoryWeekly}
	require.NoError(t, env.store.Update(ctx, map[string]any{
		ledger.ClaimPath("1", domain.CategoryWeekly, "old"):   domain.GrantedClaim(old, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
		ledger.ClaimPath("1", domain.CategoryWeekly, "fresh"): domain.GrantedClaim(fresh, time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)),
	}))
	_, err := env.history.Append(ctx, "1", "Old entry", points(1), domain.HistoryTypeTask)
	require.NoError(t, err)

	// Wednesday of the next week: the user skipped Monday.
	env.clock.Set(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	out, err := env.resets.Run(ctx, "1")
	require.NoError(t, err)
	assert.True(t, out.Weekly)
	assert.True(t, out.Daily)

	_, ok := env.claimRecord(t, "1", old)
	assert.False(t, ok)
	_, ok = env.claimRecord(t, "1", fresh)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-08", env.user(t, "1").LastReset.Weekly)

	entries, err := env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "history is kept unless the wipe is enabled")
}

func TestResetService_WeeklyHistoryWipe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resets := NewResetService(env.store, env.cal, env.history, true)
	seedResetUser(t, env, "2024-01-05", "2024-01-01")

	_, err := env.history.Append(ctx, "1", "Old entry", points(1), domain.HistoryTypeTask)
	require.NoError(t, err)

	env.clock.Set(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	_, err = resets.Run(ctx, "1")
	require.NoError(t, err)

	entries, err := env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.HistoryActionDaily, entries[0].Action)
}

func TestResetService_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.resets.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

// listHookStore runs afterList once, right after the first listing of prefix.
type listHookStore struct {
	*ledger.MemoryStore
	prefix    string
	once      sync.Once
	afterList func()
}

func (s *listHookStore) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	out, err := s.MemoryStore.List(ctx, prefix)
	if err == nil && prefix == s.prefix {
		s.once.Do(s.afterList)
	}
	return out, err
}

func TestResetService_KeepsClaimCommittedDuringReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedResetUser(t, env, "2024-01-01", "2024-01-01")
	env.clock.Set(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))

	task := env.putTask(t, domain.Task{ID: "d1", Title: "Daily", Type: domain.TaskMisc, Category: domain.CategoryDaily, Points: points(10)})
	state, err := env.tasks.Begin(ctx, "1", task)
	require.NoError(t, err)
	require.Equal(t, domain.StateClaimable, state)

	store := &listHookStore{
		MemoryStore: env.store,
		prefix:      ledger.ClaimCategoryPath("1", domain.CategoryDaily),
		afterList: func() {
			res, err := env.tasks.Claim(ctx, "1", task)
			require.NoError(t, err)
			require.True(t, res.Success)
		},
	}
	resets := NewResetService(store, env.cal, env.history, false)

	out, err := resets.Run(ctx, "1")
	require.NoError(t, err)
	assert.True(t, out.Daily)

	state, err = env.tasks.State(ctx, "1", task)
	require.NoError(t, err)
	assert.Equal(t, domain.StateClaimed, state)

	rec, ok := env.claimRecord(t, "1", task)
	require.True(t, ok)
	assert.True(t, rec.Claimed)
	assert.True(t, env.user(t, "1").Score.TaskScore.Equal(points(10)))
}

func TestResetService_ClearsStaleRecordsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedResetUser(t, env, "2024-01-01", "2024-01-01")

	today := domain.Task{ID: "today", Title: "Today", Type: domain.TaskMisc, Category: domain.CategoryDaily}
	old := domain.Task{ID: "old", Title: "Old", Type: domain.TaskMisc, Category: domain.CategoryDaily}
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.Update(ctx, map[string]any{
		ledger.ClaimPath("1", domain.CategoryDaily, "today"): domain.GrantedClaim(today, now.Add(-time.Hour)),
		ledger.ClaimPath("1", domain.CategoryDaily, "old"):   domain.GrantedClaim(old, monday),
	}))
	env.clock.Set(now)

	_, err := env.resets.Run(ctx, "1")
	require.NoError(t, err)

	_, ok := env.claimRecord(t, "1", today)
	assert.True(t, ok)
	_, ok = env.claimRecord(t, "1", old)
	assert.False(t, ok)
}
