package service

import (
	"context"
	"fmt"

	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/config"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
)

type UserService struct {
	store ledger.Store
	cal   *calendar.Calendar
}

func NewUserService(store ledger.Store, cal *calendar.Calendar) *UserService {
	return &UserService{store: store, cal: cal}
}

func newUserRecord(cal *calendar.Calendar, id, name, username string) domain.User {
	return *domain.NewUser(id, name, username, cal.Now(), config.DailyTickets)
}

// FindOrCreate loads the user record, creating it on first launch. The
// display identity is refreshed when Telegram reports a new one. The bool
// result is true when the record was created by this call.
func (s *UserService) FindOrCreate(ctx context.Context, userID, name, username string) (*domain.User, bool, error) {
	var created bool
	u, _, err := ledger.Mutate(ctx, s.store, ledger.UserPath(userID), func(u *domain.User, exists bool) error {
		created = false
		if !exists {
			*u = newUserRecord(s.cal, userID, name, username)
			created = true
			return nil
		}
		if u.ID == userID && u.Name == name && u.Username == username {
			return ledger.ErrAbort
		}
		u.ID = userID
		u.Name = name
		u.Username = username
		return nil
	})
	if err != nil {
		return nil, false, commitError("find or create user", err)
	}
	return &u, created, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, ok, err := ledger.GetJSON[domain.User](ctx, s.store, ledger.UserPath(userID))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
