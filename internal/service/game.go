package service

import (
	"context"
	"log/slog"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
	"github.com/shopspring/decimal"
)

type GameService struct {
	store   ledger.Store
	scores  *ScoreService
	history *HistoryService
	catalog *CatalogService
	tasks   *TaskService
}

func NewGameService(store ledger.Store, scores *ScoreService, history *HistoryService, catalog *CatalogService, tasks *TaskService) *GameService {
	return &GameService{store: store, scores: scores, history: history, catalog: catalog, tasks: tasks}
}

// Start spends one ticket and returns how many are left.
func (s *GameService) Start(ctx context.Context, userID string) (int, error) {
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		if u.Score.NoOfTickets <= 0 {
			return domain.ErrNoTickets
		}
		u.Score.NoOfTickets--
		return nil
	})
	if err != nil {
		return 0, commitError("start game", err)
	}
	return u.Score.NoOfTickets, nil
}

// Refund gives back a ticket spent on a game that never got played.
func (s *GameService) Refund(ctx context.Context, userID string) (int, error) {
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		u.Score.NoOfTickets++
		return nil
	})
	if err != nil {
		return 0, commitError("refund ticket", err)
	}
	return u.Score.NoOfTickets, nil
}

// Finish credits the points of one finished game. Points may be negative
// when the player hit penalties.
func (s *GameService) Finish(ctx context.Context, userID string, points decimal.Decimal) (domain.Score, error) {
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		if err := s.scores.creditInTxn(u, domain.ComponentGame, points); err != nil {
			return err
		}
		if points.GreaterThan(u.Score.GameHighestScore) {
			u.Score.GameHighestScore = points
		}
		return nil
	})
	if err != nil {
		return domain.Score{}, commitError("finish game", err)
	}
	metrics.Credits.WithLabelValues(string(domain.ComponentGame)).Inc()

	if _, err := s.history.Append(ctx, userID, domain.HistoryActionGame, points, domain.HistoryTypeGame); err != nil {
		slog.Error("failed to log game", "user_id", userID, "error", err)
	}

	// Playing a game is what unlocks the daily game tasks.
	daily, err := s.catalog.ByCategory(ctx, domain.CategoryDaily)
	if err != nil {
		slog.Error("failed to load daily tasks", "user_id", userID, "error", err)
		return u.Score, nil
	}
	for _, t := range daily {
		if t.Type != domain.TaskGame {
			continue
		}
		if _, err := s.tasks.Begin(ctx, userID, t); err != nil {
			slog.Error("failed to unlock game task", "user_id", userID, "task_id", t.ID, "error", err)
		}
	}
	return u.Score, nil
}
