package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/set-night/earnapp/internal/metrics"
)

const notifyChannel = "ledger_changes"

// LedgerStore keeps ledger documents in the ledger_nodes table. Every row
// carries a version that Transact uses for compare-and-swap.
type LedgerStore struct {
	db         *pgxpool.Pool
	maxRetries int
}

func NewLedgerStore(db *pgxpool.Pool, maxRetries int) *LedgerStore {
	if maxRetries <= 0 {
		maxRetries = ledger.DefaultMaxRetries
	}
	return &LedgerStore{db: db, maxRetries: maxRetries}
}

func (s *LedgerStore) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	path, err := ledger.Clean(path)
	if err != nil {
		return nil, false, err
	}
	var value []byte
	err = s.db.QueryRow(ctx, `SELECT value FROM ledger_nodes WHERE path = $1`, path).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", path, err)
	}
	return value, true, nil
}

func (s *LedgerStore) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	prefix, err := ledger.Clean(prefix)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT path, value FROM ledger_nodes WHERE starts_with(path, $1)`, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			path  string
			value []byte
		)
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", prefix, err)
		}
		out[strings.TrimPrefix(path, prefix+"/")] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return out, nil
}

func (s *LedgerStore) Update(ctx context.Context, values map[string]any) error {
	type write struct {
		path string
		data json.RawMessage
	}
	writes := make([]write, 0, len(values))
	for p, v := range values {
		path, err := ledger.Clean(p)
		if err != nil {
			return err
		}
		data, err := ledger.Encode(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		writes = append(writes, write{path: path, data: data})
	}
	sort.Slice(writes, func(i, j int) bool {
		di, dj := writes[i].data == nil, writes[j].data == nil
		if di != dj {
			return di
		}
		return writes[i].path < writes[j].path
	})

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range writes {
		if w.data == nil {
			if _, err := tx.Exec(ctx,
				`DELETE FROM ledger_nodes WHERE path = $1 OR starts_with(path, $2)`,
				w.path, w.path+"/"); err != nil {
				return fmt.Errorf("delete %s: %w", w.path, err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO ledger_nodes (path, value) VALUES ($1, $2)
			ON CONFLICT (path) DO UPDATE
			SET value = EXCLUDED.value, version = ledger_nodes.version + 1, updated_at = now()`,
			w.path, string(w.data)); err != nil {
			return fmt.Errorf("upsert %s: %w", w.path, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *LedgerStore) Transact(ctx context.Context, path string, fn ledger.TxnFunc) (ledger.Result, error) {
	path, err := ledger.Clean(path)
	if err != nil {
		return ledger.Result{}, err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var (
			current []byte
			version int64
		)
		exists := true
		err := s.db.QueryRow(ctx,
			`SELECT value, version FROM ledger_nodes WHERE path = $1`, path).Scan(&current, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			exists = false
		} else if err != nil {
			return ledger.Result{}, fmt.Errorf("read %s: %w", path, err)
		}

		next, err := fn(current)
		if errors.Is(err, ledger.ErrAbort) {
			return ledger.Result{Committed: false, Value: current}, nil
		}
		if err != nil {
			return ledger.Result{}, err
		}
		data, err := ledger.Encode(next)
		if err != nil {
			return ledger.Result{}, fmt.Errorf("encode %s: %w", path, err)
		}

		ok, err := s.compareAndSwap(ctx, path, exists, version, data)
		if err != nil {
			return ledger.Result{}, err
		}
		if ok {
			return ledger.Result{Committed: true, Value: data}, nil
		}
		metrics.TxnConflicts.WithLabelValues("postgres").Inc()
	}

	metrics.TxnExhausted.WithLabelValues("postgres").Inc()
	return ledger.Result{}, fmt.Errorf("transact %s: %w", path, ledger.ErrMaxRetries)
}

func (s *LedgerStore) compareAndSwap(ctx context.Context, path string, exists bool, version int64, data json.RawMessage) (bool, error) {
	var (
		sql  string
		args []any
	)
	switch {
	case !exists && data == nil:
		return true, nil
	case !exists:
		sql = `INSERT INTO ledger_nodes (path, value) VALUES ($1, $2) ON CONFLICT (path) DO NOTHING`
		args = []any{path, string(data)}
	case data == nil:
		sql = `DELETE FROM ledger_nodes WHERE path = $1 AND version = $2`
		args = []any{path, version}
	default:
		sql = `UPDATE ledger_nodes SET value = $2, version = version + 1, updated_at = now()
			WHERE path = $1 AND version = $3`
		args = []any{path, string(data), version}
	}

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Subscribe holds a dedicated connection that LISTENs for row changes.
func (s *LedgerStore) Subscribe(ctx context.Context, path string, onChange func(string)) (func(), error) {
	path, err := ledger.Clean(path)
	if err != nil {
		return nil, err
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			n, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					slog.Error("ledger listener stopped", "path", path, "error", err)
				}
				return
			}
			if ledger.Related(n.Payload, path) {
				onChange(n.Payload)
			}
		}
	}()

	unsubscribe := func() {
		cancel()
		<-done
		unlistenCtx, unlistenCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer unlistenCancel()
		if _, err := conn.Exec(unlistenCtx, "UNLISTEN "+notifyChannel); err != nil {
			// The connection may be poisoned by the cancelled wait.
			conn.Conn().Close(unlistenCtx)
		}
		conn.Release()
	}
	return unsubscribe, nil
}
