package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/set-night/earnapp/internal/metrics"
)

type memDoc struct {
	value   json.RawMessage
	version uint64
}

type subscription struct {
	path     string
	onChange func(string)
}

// MemoryStore is a process-local Store. Transactions run their TxnFunc
// outside the lock and commit only if the document version is unchanged,
// so concurrent writers see the same conflict/retry behavior as the
// Postgres store.
type MemoryStore struct {
	mu         sync.Mutex
	docs       map[string]memDoc
	seq        uint64
	subs       map[int]subscription
	nextSub    int
	maxRetries int
}

type MemoryOption func(*MemoryStore)

func WithMaxRetries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		docs:       make(map[string]memDoc),
		subs:       make(map[int]subscription),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	path, err := Clean(path)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, false, nil
	}
	return clone(doc.value), true, nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	prefix, err := Clean(prefix)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]json.RawMessage)
	for p, doc := range s.docs {
		if Under(p, prefix) {
			out[strings.TrimPrefix(p, prefix+"/")] = clone(doc.value)
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make(map[string]json.RawMessage, len(values))
	for p, v := range values {
		path, err := Clean(p)
		if err != nil {
			return err
		}
		data, err := Encode(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		encoded[path] = data
	}

	// Deletes first so a batch can clear a subtree and refill it.
	paths := make([]string, 0, len(encoded))
	for p := range encoded {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		di, dj := encoded[paths[i]] == nil, encoded[paths[j]] == nil
		if di != dj {
			return di
		}
		return paths[i] < paths[j]
	})

	s.mu.Lock()
	for _, p := range paths {
		if data := encoded[p]; data == nil {
			s.deleteLocked(p)
		} else {
			s.putLocked(p, data)
		}
	}
	subs := s.subscribersLocked(paths)
	s.mu.Unlock()

	notify(subs)
	return nil
}

func (s *MemoryStore) Transact(ctx context.Context, path string, fn TxnFunc) (Result, error) {
	path, err := Clean(path)
	if err != nil {
		return Result{}, err
	}
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		s.mu.Lock()
		doc, exists := s.docs[path]
		s.mu.Unlock()

		current := clone(doc.value)
		next, err := fn(current)
		if errors.Is(err, ErrAbort) {
			return Result{Committed: false, Value: current}, nil
		}
		if err != nil {
			return Result{}, err
		}
		data, err := Encode(next)
		if err != nil {
			return Result{}, fmt.Errorf("encode %s: %w", path, err)
		}

		s.mu.Lock()
		latest, stillExists := s.docs[path]
		if stillExists != exists || latest.version != doc.version {
			s.mu.Unlock()
			metrics.TxnConflicts.WithLabelValues("memory").Inc()
			continue
		}
		if data == nil {
			delete(s.docs, path)
		} else {
			s.putLocked(path, data)
		}
		subs := s.subscribersLocked([]string{path})
		s.mu.Unlock()

		notify(subs)
		return Result{Committed: true, Value: clone(data)}, nil
	}
	metrics.TxnExhausted.WithLabelValues("memory").Inc()
	return Result{}, fmt.Errorf("transact %s: %w", path, ErrMaxRetries)
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, onChange func(string)) (func(), error) {
	path, err := Clean(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{path: path, onChange: onChange}
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return unsubscribe, nil
}

func (s *MemoryStore) putLocked(path string, data json.RawMessage) {
	s.seq++
	s.docs[path] = memDoc{value: data, version: s.seq}
}

func (s *MemoryStore) deleteLocked(path string) {
	for p := range s.docs {
		if p == path || Under(p, path) {
			delete(s.docs, p)
		}
	}
}

func (s *MemoryStore) subscribersLocked(changed []string) []func() {
	var calls []func()
	for _, sub := range s.subs {
		for _, p := range changed {
			if Related(p, sub.path) {
				fn, p := sub.onChange, p
				calls = append(calls, func() { fn(p) })
			}
		}
	}
	return calls
}

func notify(calls []func()) {
	for _, call := range calls {
		call()
	}
}

// Encode marshals a document value. nil, JSON null and empty raw messages
// encode to nil, which stores treat as a delete.
func Encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		if !present(raw) {
			return nil, nil
		}
		return clone(raw), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
