package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
	"github.com/shopspring/decimal"
)

type ResetOutcome struct {
	Daily  bool
	Weekly bool
}

type ResetService struct {
	store   ledger.Store
	cal     *calendar.Calendar
	history *HistoryService
	// wipeHistory clears the history log on the weekly reset.
	wipeHistory bool
}

func NewResetService(store ledger.Store, cal *calendar.Calendar, history *HistoryService, wipeHistory bool) *ResetService {
	return &ResetService{store: store, cal: cal, history: history, wipeHistory: wipeHistory}
}

// Run applies the daily and weekly resets that are due for the user. Both are
// safe to run concurrently from several sessions: only the session whose
// stamp commits logs the reset.
func (s *ResetService) Run(ctx context.Context, userID string) (ResetOutcome, error) {
	var out ResetOutcome

	u, ok, err := ledger.GetJSON[domain.User](ctx, s.store, ledger.UserPath(userID))
	if err != nil {
		return out, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return out, domain.ErrUserNotFound
	}

	// Weekly first so a history wipe never drops today's login entry.
	weekKey := s.cal.Date(s.cal.CurrentWeekStart())
	if u.LastReset.Weekly < weekKey {
		out.Weekly, err = s.weekly(ctx, userID)
		if err != nil {
			return out, err
		}
	}

	if u.LastReset.Daily != s.cal.Today() {
		out.Daily, err = s.daily(ctx, userID)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *ResetService) daily(ctx context.Context, userID string) (bool, error) {
	now := s.cal.Now()
	today := s.cal.Today()

	cleared, err := s.clearClaims(ctx, userID, domain.CategoryDaily, func(rec domain.ClaimRecord) bool {
		return rec.Claimed && s.cal.SameDay(rec.LastClaimed, now)
	})
	if err != nil {
		return false, err
	}

	_, committed, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		if u.LastReset.Daily == today {
			return ledger.ErrAbort
		}
		u.Score.NoOfTickets = config.DailyTickets
		u.LastReset.Daily = today
		return nil
	})
	if err != nil {
		return false, commitError("daily reset", err)
	}
	if !committed {
		return false, nil
	}

	metrics.Resets.WithLabelValues("daily").Inc()
	slog.Info("daily reset applied", "user_id", userID, "date", today, "cleared", cleared)

	_, err = s.history.Append(ctx, userID, domain.HistoryActionDaily,
		decimal.NewFromInt(config.DailyLoginPoints), domain.HistoryTypeHome)
	if err != nil {
		slog.Error("failed to log daily login", "user_id", userID, "error", err)
	}
	return true, nil
}

func (s *ResetService) weekly(ctx context.Context, userID string) (bool, error) {
	weekStart := s.cal.CurrentWeekStart()
	weekKey := s.cal.Date(weekStart)

	cleared, err := s.clearClaims(ctx, userID, domain.CategoryWeekly, func(rec domain.ClaimRecord) bool {
		return rec.Claimed && !rec.LastClaimed.Before(weekStart)
	})
	if err != nil {
		return false, err
	}

	_, committed, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		if u.LastReset.Weekly >= weekKey {
			return ledger.ErrAbort
		}
		u.LastReset.Weekly = weekKey
		return nil
	})
	if err != nil {
		return false, commitError("weekly reset", err)
	}
	if !committed {
		return false, nil
	}

	metrics.Resets.WithLabelValues("weekly").Inc()
	slog.Info("weekly reset applied", "user_id", userID, "week", weekKey, "cleared", cleared)

	if s.wipeHistory {
		if err := s.history.Clear(ctx, userID); err != nil {
			slog.Error("failed to wipe history", "user_id", userID, "error", err)
		}
	}
	return true, nil
}

// clearClaims deletes the category's claim records that keep does not
// accept. Each delete re-reads its record inside a transaction, so a claim
// committed after the listing survives.
func (s *ResetService) clearClaims(ctx context.Context, userID string, c domain.Category, keep func(domain.ClaimRecord) bool) (int, error) {
	records, err := ledger.ListJSON[domain.ClaimRecord](ctx, s.store, ledger.ClaimCategoryPath(userID, c))
	if err != nil {
		return 0, fmt.Errorf("list %s claims: %w", c, err)
	}

	cleared := 0
	for id, rec := range records {
		if keep(rec) {
			continue
		}
		path := ledger.ClaimPath(userID, c, id)
		res, err := s.store.Transact(ctx, path, func(current json.RawMessage) (any, error) {
			if len(current) == 0 {
				return nil, ledger.ErrAbort
			}
			var cur domain.ClaimRecord
			if err := json.Unmarshal(current, &cur); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
			if keep(cur) {
				return nil, ledger.ErrAbort
			}
			return nil, nil
		})
		if err != nil {
			return cleared, fmt.Errorf("clear %s: %w", path, err)
		}
		if res.Committed {
			cleared++
		}
	}
	return cleared, nil
}
