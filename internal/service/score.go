package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
	"github.com/shopspring/decimal"
)

type ScoreService struct {
	store ledger.Store
	cal   *calendar.Calendar
}

func NewScoreService(store ledger.Store, cal *calendar.Calendar) *ScoreService {
	return &ScoreService{store: store, cal: cal}
}

// creditInTxn applies a credit to a user record inside a transaction body.
// Every path that pays points goes through here so the total is always
// recomputed from the components.
func (s *ScoreService) creditInTxn(u *domain.User, c domain.ScoreComponent, amount decimal.Decimal) error {
	now := s.cal.Now()
	return u.Score.Credit(c, amount, now, s.cal.WeekStart(now))
}

// Credit adds amount to one component of the user's score. An absent user
// record is treated as all-zero and created.
func (s *ScoreService) Credit(ctx context.Context, userID string, c domain.ScoreComponent, amount decimal.Decimal) (domain.Score, error) {
	if !c.Valid() {
		return domain.Score{}, fmt.Errorf("credit %s: %w", c, domain.ErrUnknownComponent)
	}

	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			*u = newUserRecord(s.cal, userID, "", "")
		}
		return s.creditInTxn(u, c, amount)
	})
	if err != nil {
		return domain.Score{}, commitError("credit "+string(c), err)
	}

	metrics.Credits.WithLabelValues(string(c)).Inc()
	return u.Score, nil
}

func (s *ScoreService) Get(ctx context.Context, userID string) (domain.Score, error) {
	u, ok, err := ledger.GetJSON[domain.User](ctx, s.store, ledger.UserPath(userID))
	if err != nil {
		return domain.Score{}, fmt.Errorf("get score: %w", err)
	}
	if !ok {
		return domain.Score{}, domain.ErrUserNotFound
	}
	return u.Score, nil
}

// commitError marks exhausted transactions as commit failures so callers can
// tell a lost race from other store errors.
func commitError(op string, err error) error {
	if errors.Is(err, ledger.ErrMaxRetries) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrCommitFailure, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
