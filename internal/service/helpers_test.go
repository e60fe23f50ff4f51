package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/cache"
	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) StreakChanged(ctx context.Context, e domain.StreakChanged) {
	m.Called(ctx, e)
}

func (m *mockSink) ReferralWelcome(ctx context.Context, e domain.ReferralWelcome) {
	m.Called(ctx, e)
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

type testEnv struct {
	store    *ledger.MemoryStore
	clock    *testClock
	cal      *calendar.Calendar
	sink     *mockSink
	checker  *mockChecker
	users    *UserService
	scores   *ScoreService
	history  *HistoryService
	catalog  *CatalogService
	verifier *Verifier
	tasks    *TaskService
	resets   *ResetService
	streaks  *StreakService
	referral *ReferralService
	games    *GameService
	farming  *FarmingService
	sessions *SessionService
}

// monday is 2024-01-01, a Monday.
var monday = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   ledger.NewMemoryStore(),
		clock:   &testClock{t: monday},
		sink:    &mockSink{},
		checker: &mockChecker{},
	}
	env.sink.On("StreakChanged", mock.Anything, mock.Anything).Maybe()
	env.sink.On("ReferralWelcome", mock.Anything, mock.Anything).Maybe()

	env.cal = calendar.New(time.UTC, env.clock.Now)
	markers, err := cache.NewLRUMarkers(128, 0)
	require.NoError(t, err)

	env.users = NewUserService(env.store, env.cal)
	env.scores = NewScoreService(env.store, env.cal)
	env.history = NewHistoryService(env.store, env.cal)
	env.catalog = NewCatalogService(env.store, time.Hour)
	env.verifier = NewVerifier(env.store, env.checker, time.Millisecond, 5)
	t.Cleanup(env.verifier.Stop)
	env.tasks = NewTaskService(env.store, env.cal, env.scores, env.history, env.catalog, env.verifier)
	env.resets = NewResetService(env.store, env.cal, env.history, false)
	env.streaks = NewStreakService(env.store, env.cal, env.sink)
	env.referral = NewReferralService(env.store, env.cal, env.scores, env.history, markers, env.sink, "t.me", "earn_bot")
	env.games = NewGameService(env.store, env.scores, env.history, env.catalog, env.tasks)
	env.farming = NewFarmingService(env.store, env.cal, env.scores, env.history, 8*time.Hour, decimal.NewFromInt(100))
	env.sessions = NewSessionService(env.users, env.streaks, env.resets)
	return env
}

func (e *testEnv) createUser(t *testing.T, id string) *domain.User {
	t.Helper()
	u, _, err := e.users.FindOrCreate(context.Background(), id, "user "+id, "u"+id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := e.users.Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) putTask(t *testing.T, task domain.Task) domain.Task {
	t.Helper()
	require.NoError(t, e.catalog.Put(context.Background(), task))
	return task
}

func (e *testEnv) claimRecord(t *testing.T, userID string, task domain.Task) (domain.ClaimRecord, bool) {
	t.Helper()
	rec, ok, err := ledger.GetJSON[domain.ClaimRecord](context.Background(), e.store,
		ledger.ClaimPath(userID, task.Category, task.ID))
	require.NoError(t, err)
	return rec, ok
}

func points(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// exhaustedStore fails every transaction as if it kept losing races.
type exhaustedStore struct {
	*ledger.MemoryStore
}

func (s exhaustedStore) Transact(ctx context.Context, path string, fn ledger.TxnFunc) (ledger.Result, error) {
	return ledger.Result{}, ledger.ErrMaxRetries
}

var _ ledger.Store = exhaustedStore{}
