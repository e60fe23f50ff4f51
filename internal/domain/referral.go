package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const ReferralStatusActive = "active"

// Referral is the referrer-owned record of one invited user.
type Referral struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	JoinTimestamp time.Time `json:"joinTimestamp"`
	Status        string    `json:"status"`
	CurrentStreak int       `json:"currentStreak"`
}

// RefereeProfile is the identity a referee launches the app with.
type RefereeProfile struct {
	Name     string
	Username string
}

type ReferralOutcome struct {
	// ReferrerCredited is true when this call inserted the referral and paid
	// the referrer.
	ReferrerCredited bool
	// RefereeCredited is true when this call paid the referee bonus.
	RefereeCredited bool
	// AlreadyProcessed is true when the local marker short-circuited the call.
	AlreadyProcessed bool
	RefereeBonus     decimal.Decimal
}
