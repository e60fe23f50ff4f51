package service

import (
	"context"
	"fmt"

	"github.com/set-night/earnapp/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Session struct {
	User    *domain.User
	Created bool
	Streak  *domain.StreakChanged
	Reset   ResetOutcome
}

// SessionService runs everything a launch of the app triggers.
type SessionService struct {
	users   *UserService
	streaks *StreakService
	resets  *ResetService
}

func NewSessionService(users *UserService, streaks *StreakService, resets *ResetService) *SessionService {
	return &SessionService{users: users, streaks: streaks, resets: resets}
}

func (s *SessionService) Bootstrap(ctx context.Context, userID, name, username string) (*Session, error) {
	u, created, err := s.users.FindOrCreate(ctx, userID, name, username)
	if err != nil {
		return nil, err
	}
	sess := &Session{User: u, Created: created}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ev, err := s.streaks.Check(gctx, userID)
		if err != nil {
			return fmt.Errorf("streak: %w", err)
		}
		sess.Streak = ev
		return nil
	})
	g.Go(func() error {
		out, err := s.resets.Run(gctx, userID)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		sess.Reset = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bootstrap %s: %w", userID, err)
	}

	if sess.User, err = s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	return sess, nil
}
