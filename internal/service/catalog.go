package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/shopspring/decimal"
)

// catalogRecord is the admin-owned shape of a task. Older entries carry the
// reward under "score" instead of "points".
type catalogRecord struct {
	Title    string           `json:"title"`
	Type     domain.TaskType  `json:"type"`
	Category domain.Category  `json:"category,omitempty"`
	Points   *decimal.Decimal `json:"points,omitempty"`
	Score    *decimal.Decimal `json:"score,omitempty"`
	Total    int              `json:"total,omitempty"`
	VideoURL string           `json:"videoUrl,omitempty"`
	ChatID   string           `json:"chatId,omitempty"`
	Link     string           `json:"link,omitempty"`
}

func normalizeTask(category domain.Category, id string, rec catalogRecord) (domain.Task, error) {
	t := domain.Task{
		ID:       id,
		Title:    rec.Title,
		Type:     rec.Type,
		Category: rec.Category,
		Total:    rec.Total,
		VideoURL: rec.VideoURL,
		ChatID:   rec.ChatID,
		Link:     rec.Link,
	}
	if t.Category == "" {
		t.Category = category
	}
	switch {
	case rec.Points != nil:
		t.Points = *rec.Points
	case rec.Score != nil:
		t.Points = *rec.Score
	}
	if err := t.Validate(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

type taskCache struct {
	mu       sync.RWMutex
	tasks    []domain.Task
	cachedAt time.Time
	ttl      time.Duration
}

func (c *taskCache) get() []domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.tasks == nil || time.Since(c.cachedAt) > c.ttl {
		return nil
	}
	return c.tasks
}

func (c *taskCache) set(tasks []domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = tasks
	c.cachedAt = time.Now()
}

func (c *taskCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = nil
}

// CatalogService reads the task catalog. The engine never writes it outside
// of Put, which exists for admin tooling.
type CatalogService struct {
	store ledger.Store
	cache *taskCache
}

func NewCatalogService(store ledger.Store, ttl time.Duration) *CatalogService {
	return &CatalogService{store: store, cache: &taskCache{ttl: ttl}}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Task, error) {
	if tasks := s.cache.get(); tasks != nil {
		return tasks, nil
	}

	raw, err := s.store.List(ctx, ledger.CatalogRoot)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	tasks := make([]domain.Task, 0, len(raw))
	for key, data := range raw {
		category, id, ok := strings.Cut(key, "/")
		if !ok || strings.Contains(id, "/") {
			continue
		}
		var rec catalogRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("skip malformed catalog entry", "key", key, "error", err)
			continue
		}
		t, err := normalizeTask(domain.Category(category), id, rec)
		if err != nil {
			slog.Warn("skip invalid catalog entry", "key", key, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		ci, cj := categoryOrder(tasks[i].Category), categoryOrder(tasks[j].Category)
		if ci != cj {
			return ci < cj
		}
		return tasks[i].ID < tasks[j].ID
	})

	s.cache.set(tasks)
	return tasks, nil
}

func categoryOrder(c domain.Category) int {
	for i, known := range domain.Categories {
		if c == known {
			return i
		}
	}
	return len(domain.Categories)
}

func (s *CatalogService) ByCategory(ctx context.Context, c domain.Category) ([]domain.Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Task
	for _, t := range tasks {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *CatalogService) Find(ctx context.Context, c domain.Category, id string) (domain.Task, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range tasks {
		if t.Category == c && t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, fmt.Errorf("find %s/%s: %w", c, id, domain.ErrTaskNotFound)
}

// Put stores a task definition in the catalog folder of its category.
func (s *CatalogService) Put(ctx context.Context, t domain.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	points := t.Points
	rec := catalogRecord{
		Title:    t.Title,
		Type:     t.Type,
		Points:   &points,
		Total:    t.Total,
		VideoURL: t.VideoURL,
		ChatID:   t.ChatID,
		Link:     t.Link,
	}
	if err := s.store.Update(ctx, map[string]any{ledger.CatalogTaskPath(t.Category, t.ID): rec}); err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	s.Invalidate()
	return nil
}

func (s *CatalogService) Invalidate() {
	s.cache.reset()
}

// Watch drops the cached catalog whenever an admin edits it.
func (s *CatalogService) Watch(ctx context.Context) (func(), error) {
	return s.store.Subscribe(ctx, ledger.CatalogRoot, func(changed string) {
		slog.Debug("catalog changed", "path", changed)
		s.Invalidate()
	})
}
