package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryEntry struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Points    decimal.Decimal `json:"points"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// History entry types shown as the source screen in the app.
const (
	HistoryTypeHome     = "Home"
	HistoryTypeTask     = "Task"
	HistoryTypeGame     = "Game"
	HistoryTypeNetwork  = "Network"
	HistoryTypeFarming  = "Farming"
	HistoryTypeNews     = "News"
	HistoryActionDaily  = "Daily login reward"
	HistoryActionInvite = "Friend invited"
	HistoryActionJoined = "Joined with referral"
	HistoryActionGame   = "Game played"
	HistoryActionFarm   = "Farming reward"
)
