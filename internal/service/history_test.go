package service

import (
	"context"
	"testing"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_ListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i, action := range []string{"first", "second", "third"} {
		env.clock.Set(monday.Add(time.Duration(i) * time.Minute))
		_, err := env.history.Append(ctx, "1", action, points(int64(i)), domain.HistoryTypeTask)
		require.NoError(t, err)
	}

	entries, err := env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Action)
	assert.Equal(t, "first", entries[2].Action)
	assert.NotEmpty(t, entries[0].ID)

	entries, err = env.history.List(ctx, "1", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, env.history.Clear(ctx, "1"))
	entries, err = env.history.List(ctx, "1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
