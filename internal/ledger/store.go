// Package ledger defines the path-addressable document store the reward
// engine runs on, plus an in-memory implementation.
//
// Paths are slash-separated ("users/42", "claims/42/daily/t1"). A document
// lives at exactly one path; List and subtree deletes treat the path as a
// prefix.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrAbort returned from a TxnFunc ends the transaction without writing.
	ErrAbort = errors.New("transaction aborted")
	// ErrMaxRetries means every attempt lost a race with a concurrent writer.
	ErrMaxRetries = errors.New("transaction retries exhausted")
	ErrInvalidPath = errors.New("invalid ledger path")
)

// DefaultMaxRetries matches the retry budget of Firebase transactions.
const DefaultMaxRetries = 25

// TxnFunc receives the current document (nil when absent) and returns the
// next one. Returning a nil next deletes the document. The function may run
// several times and must not keep side effects between calls.
type TxnFunc func(current json.RawMessage) (next any, err error)

type Result struct {
	Committed bool
	// Value is the document after the transaction: the written value when
	// committed, the observed value when aborted.
	Value json.RawMessage
}

type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, bool, error)
	// List returns every document below prefix keyed by its relative path.
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
	// Update writes every path atomically. A nil value deletes the document
	// and its subtree.
	Update(ctx context.Context, values map[string]any) error
	Transact(ctx context.Context, path string, fn TxnFunc) (Result, error)
	// Subscribe calls onChange with the changed path whenever path or
	// anything below or above it is written.
	Subscribe(ctx context.Context, path string, onChange func(changed string)) (func(), error)
}
