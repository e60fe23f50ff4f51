package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
)

type StreakService struct {
	store ledger.Store
	cal   *calendar.Calendar
	sink  domain.EventSink
}

func NewStreakService(store ledger.Store, cal *calendar.Calendar, sink domain.EventSink) *StreakService {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &StreakService{store: store, cal: cal, sink: sink}
}

func streakMessage(t domain.StreakTransition, current int) string {
	switch t {
	case domain.StreakContinued:
		return fmt.Sprintf("🔥 %d day streak! Come back tomorrow to keep it going.", current)
	case domain.StreakBroken:
		return "Your streak was reset. Day 1 starts now!"
	default:
		return "🔥 Streak started! Day 1."
	}
}

// Check counts today's visit. Days are UTC calendar days. It returns nil
// when today was already counted.
func (s *StreakService) Check(ctx context.Context, userID string) (*domain.StreakChanged, error) {
	today := s.cal.TodayUTC()
	yesterday, err := calendar.PreviousDay(today)
	if err != nil {
		return nil, err
	}

	var transition domain.StreakTransition
	u, committed, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		if !exists {
			return domain.ErrUserNotFound
		}
		st := &u.Streak
		switch st.LastStreakCheckDateUTC {
		case today:
			return ledger.ErrAbort
		case "":
			transition = domain.StreakStarted
			st.CurrentStreakCount = 1
			st.LongestStreakCount = max(st.LongestStreakCount, 1)
		case yesterday:
			transition = domain.StreakContinued
			st.CurrentStreakCount++
			st.LongestStreakCount = max(st.LongestStreakCount, st.CurrentStreakCount)
		default:
			transition = domain.StreakBroken
			st.CurrentStreakCount = 1
		}
		st.LastStreakCheckDateUTC = today
		return nil
	})
	if err != nil {
		return nil, commitError("check streak", err)
	}
	if !committed {
		return nil, nil
	}

	ev := domain.StreakChanged{
		UserID:        userID,
		Transition:    transition,
		Message:       streakMessage(transition, u.Streak.CurrentStreakCount),
		CurrentStreak: u.Streak.CurrentStreakCount,
		LongestStreak: u.Streak.LongestStreakCount,
	}
	metrics.StreakTransitions.WithLabelValues(string(transition)).Inc()
	s.sink.StreakChanged(ctx, ev)

	if u.IsReferred && u.ReferredBy != "" {
		if err := s.mirrorToReferrer(ctx, u.ReferredBy, userID, ev.CurrentStreak); err != nil {
			slog.Warn("failed to mirror streak to referrer",
				"user_id", userID, "referrer_id", u.ReferredBy, "error", err)
		}
	}
	return &ev, nil
}

// mirrorToReferrer keeps the streak shown in the referrer's network list
// current.
func (s *StreakService) mirrorToReferrer(ctx context.Context, referrerID, userID string, current int) error {
	_, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(referrerID), func(u *domain.User, exists bool) error {
		if !exists {
			return ledger.ErrAbort
		}
		ref, ok := u.Referrals[userID]
		if !ok || ref.CurrentStreak == current {
			return ledger.ErrAbort
		}
		ref.CurrentStreak = current
		u.Referrals[userID] = ref
		return nil
	})
	return err
}
