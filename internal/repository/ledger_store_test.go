package repository

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/earnapp"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedgerStore(t *testing.T) (*LedgerStore, string) {
	t.Helper()

	url := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	sub, err := earnapp.Migrations()
	require.NoError(t, err)
	require.NoError(t, RunMigrations(url, sub))

	pool, err := NewPool(context.Background(), url, PoolConfig{MaxConns: 8, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// Each test works under its own root so runs do not collide.
	root := "test-" + uuid.NewString()
	store := NewLedgerStore(pool, 0)
	t.Cleanup(func() {
		_ = store.Update(context.Background(), map[string]any{root: nil})
	})
	return store, root
}

func TestLedgerStore_UpdateGetList(t *testing.T) {
	store, root := setupLedgerStore(t)
	ctx := context.Background()

	err := store.Update(ctx, map[string]any{
		root + "/a/1": map[string]int{"n": 1},
		root + "/a/2": map[string]int{"n": 2},
		root + "/b":   true,
	})
	require.NoError(t, err)

	raw, ok, err := store.Get(ctx, root+"/a/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"n":1}`, string(raw))

	items, err := store.List(ctx, root+"/a")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Contains(t, items, "1")
	assert.Contains(t, items, "2")

	require.NoError(t, store.Update(ctx, map[string]any{root + "/a": nil}))
	items, err = store.List(ctx, root+"/a")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, ok, err = store.Get(ctx, root+"/b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerStore_TransactConcurrentIncrements(t *testing.T) {
	store, root := setupLedgerStore(t)
	ctx := context.Background()
	path := root + "/counter"

	type counter struct {
		N int `json:"n"`
	}

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.Mutate(ctx, store, path, func(c *counter, _ bool) error {
				c.N++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, ok, err := ledger.GetJSON[counter](ctx, store, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, workers, got.N)
}

func TestLedgerStore_TransactAbortLeavesValue(t *testing.T) {
	store, root := setupLedgerStore(t)
	ctx := context.Background()
	path := root + "/doc"

	require.NoError(t, store.Update(ctx, map[string]any{path: "v1"}))

	res, err := store.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		return nil, ledger.ErrAbort
	})
	require.NoError(t, err)
	assert.False(t, res.Committed)
	assert.JSONEq(t, `"v1"`, string(res.Value))
}

func TestLedgerStore_Subscribe(t *testing.T) {
	store, root := setupLedgerStore(t)
	ctx := context.Background()

	changed := make(chan string, 4)
	unsubscribe, err := store.Subscribe(ctx, root+"/watched", func(p string) {
		changed <- p
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.Update(ctx, map[string]any{root + "/other": 1}))
	require.NoError(t, store.Update(ctx, map[string]any{root + "/watched/x": 1}))

	select {
	case p := <-changed:
		assert.Equal(t, root+"/watched/x", p)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}
}
