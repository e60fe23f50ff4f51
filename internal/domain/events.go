package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type StreakTransition string

const (
	StreakStarted   StreakTransition = "started"
	StreakContinued StreakTransition = "continued"
	StreakBroken    StreakTransition = "broken"
)

type StreakChanged struct {
	UserID        string
	Transition    StreakTransition
	Message       string
	CurrentStreak int
	LongestStreak int
}

type ClaimResult struct {
	TaskID  string
	Success bool
	Reason  string
	Points  decimal.Decimal
	Score   Score
}

type ReferralWelcome struct {
	RefereeID  string
	ReferrerID string
	Bonus      decimal.Decimal
}

// EventSink receives engine notifications meant for the UI layer.
type EventSink interface {
	StreakChanged(ctx context.Context, e StreakChanged)
	ReferralWelcome(ctx context.Context, e ReferralWelcome)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) StreakChanged(context.Context, StreakChanged)     {}
func (NopSink) ReferralWelcome(context.Context, ReferralWelcome) {}
