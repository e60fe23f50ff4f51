package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refereeBonus = decimal.NewFromInt(config.RefereeBonus)

type referralEnv struct {
	store *ledger.MemoryStore
	users *service.UserService
	h     *Handler
}

func newReferralEnv(store ledger.Store, mem *ledger.MemoryStore) *referralEnv {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cal := calendar.New(time.UTC, func() time.Time { return now })
	scores := service.NewScoreService(store, cal)
	history := service.NewHistoryService(store, cal)
	return &referralEnv{
		store: mem,
		users: service.NewUserService(mem, cal),
		h: &Handler{
			scores:    scores,
			history:   history,
			referrals: service.NewReferralService(store, cal, scores, history, nil, nil, "t.me", "earn_bot"),
		},
	}
}

func (e *referralEnv) session(t *testing.T, id, name string) *service.Session {
	t.Helper()
	u, created, err := e.users.FindOrCreate(context.Background(), id, name, "")
	require.NoError(t, err)
	return &service.Session{User: u, Created: created}
}

func (e *referralEnv) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := e.users.Get(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestApplyStartPayload_ExistingUserJoinsThroughLink(t *testing.T) {
	mem := ledger.NewMemoryStore()
	env := newReferralEnv(mem, mem)
	ctx := context.Background()
	env.session(t, "100", "Ann")

	// Bob opened the bot before following Ann's link.
	env.session(t, "200", "Bob")
	sess := env.session(t, "200", "Bob")
	require.False(t, sess.Created)

	env.h.applyStartPayload(ctx, sess, "/start ref_abcd_100")

	bob := env.user(t, "200")
	assert.True(t, bob.IsReferred)
	assert.Equal(t, "100", bob.ReferredBy)
	assert.True(t, bob.Score.NetworkScore.Equal(refereeBonus))
	assert.Contains(t, env.user(t, "100").Referrals, "200")

	// A repeated start pays nothing more.
	env.h.applyStartPayload(ctx, sess, "/start ref_abcd_100")
	assert.True(t, env.user(t, "200").Score.NetworkScore.Equal(refereeBonus))
}

// failingStore fails every transaction on one path until healed.
type failingStore struct {
	*ledger.MemoryStore
	path   string
	broken bool
}

func (s *failingStore) Transact(ctx context.Context, path string, fn ledger.TxnFunc) (ledger.Result, error) {
	if s.broken && path == s.path {
		return ledger.Result{}, errors.New("connection reset")
	}
	return s.MemoryStore.Transact(ctx, path, fn)
}

func TestApplyStartPayload_RetriesAfterFailedAttempt(t *testing.T) {
	mem := ledger.NewMemoryStore()
	store := &failingStore{MemoryStore: mem, path: ledger.UserPath("200"), broken: true}
	env := newReferralEnv(store, mem)
	ctx := context.Background()
	env.session(t, "100", "Ann")

	sess := env.session(t, "200", "Bob")
	require.True(t, sess.Created)
	env.h.applyStartPayload(ctx, sess, "/start ref_abcd_100")
	assert.False(t, env.user(t, "200").IsReferred)

	store.broken = false
	sess = env.session(t, "200", "Bob")
	require.False(t, sess.Created)
	env.h.applyStartPayload(ctx, sess, "/start ref_abcd_100")

	bob := env.user(t, "200")
	assert.True(t, bob.IsReferred)
	assert.Equal(t, "100", bob.ReferredBy)
	assert.Len(t, env.user(t, "100").Referrals, 1)
}

func TestApplyStartPayload_IgnoresPlainStart(t *testing.T) {
	mem := ledger.NewMemoryStore()
	env := newReferralEnv(mem, mem)
	sess := env.session(t, "200", "Bob")

	env.h.applyStartPayload(context.Background(), sess, "/start")
	env.h.applyStartPayload(context.Background(), sess, "/start promo_1")

	assert.False(t, env.user(t, "200").IsReferred)
}
