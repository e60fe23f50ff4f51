package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ClaimState string

const (
	StateNotStarted          ClaimState = "not_started"
	StatePendingVerification ClaimState = "pending_verification"
	StateClaimable           ClaimState = "claimable"
	StateClaimed             ClaimState = "claimed"
	StateFailed              ClaimState = "failed"
)

// ClaimRecord is stored as the JSON literal false while the reward is pending
// and as an object with lastClaimed plus a task snapshot once it is granted.
type ClaimRecord struct {
	Claimed     bool            `json:"-"`
	LastClaimed time.Time       `json:"lastClaimed"`
	Title       string          `json:"title,omitempty"`
	Type        TaskType        `json:"type,omitempty"`
	Category    Category        `json:"category,omitempty"`
	Points      decimal.Decimal `json:"points"`
	VideoURL    string          `json:"videoUrl,omitempty"`
}

// PendingClaim is the record written on first interaction.
var PendingClaim = ClaimRecord{}

// GrantedClaim snapshots the task at claim time.
func GrantedClaim(t Task, at time.Time) ClaimRecord {
	return ClaimRecord{
		Claimed:     true,
		LastClaimed: at,
		Title:       t.Title,
		Type:        t.Type,
		Category:    t.Category,
		Points:      t.Points,
		VideoURL:    t.VideoURL,
	}
}

type claimRecordJSON ClaimRecord

func (r ClaimRecord) MarshalJSON() ([]byte, error) {
	if !r.Claimed {
		return []byte("false"), nil
	}
	return json.Marshal(claimRecordJSON(r))
}

func (r *ClaimRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "false", "null":
		*r = ClaimRecord{}
		return nil
	case "true":
		*r = ClaimRecord{Claimed: true}
		return nil
	}
	var v claimRecordJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ClaimRecord(v)
	r.Claimed = true
	return nil
}
