package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Username       string              `json:"username"`
	Score          Score               `json:"Score"`
	LastReset      LastReset           `json:"lastReset"`
	Streak         Streak              `json:"streak"`
	Referrals      map[string]Referral `json:"referrals,omitempty"`
	IsReferred     bool                `json:"isReferred"`
	ReferredBy     string              `json:"referredBy,omitempty"`
	WeeklyProgress WeeklyProgress      `json:"weekly_progress"`
	Farming        Farming             `json:"farming"`

	// ClaimWindows maps a task ID to the cadence window it was last paid in.
	ClaimWindows map[string]string `json:"claim_windows,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// LastReset holds the calendar keys of the last processed resets.
type LastReset struct {
	Daily  string `json:"daily,omitempty"`
	Weekly string `json:"weekly,omitempty"`
}

type Streak struct {
	CurrentStreakCount     int    `json:"currentStreakCount"`
	LongestStreakCount     int    `json:"longestStreakCount"`
	LastStreakCheckDateUTC string `json:"lastStreakCheckDateUTC,omitempty"`
}

type WeeklyProgress struct {
	CurrentWeekDays   int    `json:"current_week_days"`
	LastCompletedDate string `json:"last_completed_date,omitempty"`
}

type Farming struct {
	StartedAt time.Time `json:"started_at"`
}

func (f Farming) Active() bool {
	return !f.StartedAt.IsZero()
}

// NewUser returns an initialized record. The streak is left unchecked so
// the first visit counts as the start of one.
func NewUser(id, name, username string, now time.Time, tickets int) *User {
	return &User{
		ID:       id,
		Name:     name,
		Username: username,
		Score: Score{
			FarmingScore:     decimal.Zero,
			GameScore:        decimal.Zero,
			GameHighestScore: decimal.Zero,
			NetworkScore:     decimal.Zero,
			NewsScore:        decimal.Zero,
			TaskScore:        decimal.Zero,
			TotalScore:       decimal.Zero,
			WeeklyPoints:     decimal.Zero,
			NoOfTickets:      tickets,
		},
		CreatedAt: now,
	}
}

// Exists reports whether the record was loaded from the store rather than
// being a zero value.
func (u *User) Exists() bool {
	return u != nil && u.ID != ""
}
