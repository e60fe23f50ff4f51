package ledger

import (
	"context"
	"encoding/json"
	"fmt"
)

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// GetJSON reads and decodes a document.
func GetJSON[T any](ctx context.Context, s Store, path string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(ctx, path)
	if err != nil || !ok || !present(raw) {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, true, nil
}

// ListJSON decodes every document below prefix.
func ListJSON[T any](ctx context.Context, s Store, prefix string) (map[string]T, error) {
	raw, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for k, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", prefix, k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Mutate runs a typed transaction: the current document is decoded into a
// fresh T on every attempt and fn edits it in place. fn may return ErrAbort
// to leave the document untouched; committed reports which happened.
func Mutate[T any](ctx context.Context, s Store, path string, fn func(v *T, exists bool) error) (value T, committed bool, err error) {
	res, err := s.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		var v T
		exists := present(current)
		if exists {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
		if err := fn(&v, exists); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return value, false, err
	}
	if present(res.Value) {
		if err := json.Unmarshal(res.Value, &value); err != nil {
			return value, res.Committed, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return value, res.Committed, nil
}
