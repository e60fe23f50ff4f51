package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
	"github.com/shopspring/decimal"
)

type FarmingStatus struct {
	Active bool
	EndsAt time.Time
	Ready  bool
}

type FarmingService struct {
	store    ledger.Store
	cal      *calendar.Calendar
	scores   *ScoreService
	history  *HistoryService
	duration time.Duration
	reward   decimal.Decimal
}

func NewFarmingService(store ledger.Store, cal *calendar.Calendar, scores *ScoreService, history *HistoryService, duration time.Duration, reward decimal.Decimal) *FarmingService {
	return &FarmingService{
		store:    store,
		cal:      cal,
		scores:   scores,
		history:  history,
		duration: duration,
		reward:   reward,
	}
}

func (s *FarmingService) status(f domain.Farming) FarmingStatus {
	if !f.Active() {
		return FarmingStatus{}
	}
	ends := f.StartedAt.Add(s.duration)
	return FarmingStatus{Active: true, EndsAt: ends, Ready: !s.cal.Now().Before(ends)}
}

func (s *FarmingService) Status(ctx context.Context, userID string) (FarmingStatus, error) {
	u, ok, err := ledger.GetJSON[domain.User](ctx, s.store, ledger.UserPath(userID))
	if err != nil {
		return FarmingStatus{}, err
	}
	if !ok {
		return FarmingStatus{}, domain.ErrUserNotFound
	}
	return s.status(u.Farming), nil
}

func (s *FarmingService) Start(ctx context.Context, userID string) (FarmingStatus, error) {
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		if u.Farming.Active() {
			return domain.ErrFarmingActive
		}
		u.Farming.StartedAt = s.cal.Now()
		return nil
	})
	if err != nil {
		return FarmingStatus{}, commitError("start farming", err)
	}
	return s.status(u.Farming), nil
}

// Claim pays a finished farming session. Clearing the session in the same
// transaction makes the payout happen once.
func (s *FarmingService) Claim(ctx context.Context, userID string) (domain.Score, error) {
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		st := s.status(u.Farming)
		if !st.Active {
			return domain.ErrFarmingNotStarted
		}
		if !st.Ready {
			return domain.ErrFarmingNotReady
		}
		if err := s.scores.creditInTxn(u, domain.ComponentFarming, s.reward); err != nil {
			return err
		}
		u.Farming = domain.Farming{}
		return nil
	})
	if err != nil {
		return domain.Score{}, commitError("claim farming", err)
	}
	metrics.Credits.WithLabelValues(string(domain.ComponentFarming)).Inc()

	if _, err := s.history.Append(ctx, userID, domain.HistoryActionFarm, s.reward, domain.HistoryTypeFarming); err != nil {
		slog.Error("failed to log farming", "user_id", userID, "error", err)
	}
	return u.Score, nil
}
