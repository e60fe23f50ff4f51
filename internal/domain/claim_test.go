package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimRecord_PendingEncodesAsFalse(t *testing.T) {
	data, err := json.Marshal(PendingClaim)
	require.NoError(t, err)
	assert.Equal(t, "false", string(data))

	var r ClaimRecord
	require.NoError(t, json.Unmarshal([]byte("false"), &r))
	assert.False(t, r.Claimed)
}

func TestClaimRecord_GrantedKeepsSnapshot(t *testing.T) {
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	task := Task{ID: "t1", Title: "Watch intro", Type: TaskWatch, Category: CategoryDaily, Points: decimal.NewFromInt(25), VideoURL: "v1"}

	data, err := json.Marshal(map[string]any{"t1": GrantedClaim(task, at)})
	require.NoError(t, err)

	var decoded map[string]ClaimRecord
	require.NoError(t, json.Unmarshal(data, &decoded))

	got := decoded["t1"]
	assert.True(t, got.Claimed)
	assert.True(t, got.LastClaimed.Equal(at))
	assert.Equal(t, "v1", got.VideoURL)
	assert.True(t, got.Points.Equal(decimal.NewFromInt(25)))
}
