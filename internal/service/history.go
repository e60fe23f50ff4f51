package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/set-night/earnapp/internal/calendar"
	"github.com/set-night/earnapp/internal/domain"
	"github.com/set-night/earnapp/internal/ledger"
	"github.com/shopspring/decimal"
)

type HistoryService struct {
	store ledger.Store
	cal   *calendar.Calendar
}

func NewHistoryService(store ledger.Store, cal *calendar.Calendar) *HistoryService {
	return &HistoryService{store: store, cal: cal}
}

func (s *HistoryService) Append(ctx context.Context, userID, action string, points decimal.Decimal, typ string) (domain.HistoryEntry, error) {
	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Points:    points,
		Type:      typ,
		Timestamp: s.cal.Now(),
	}
	err := s.store.Update(ctx, map[string]any{
		ledger.HistoryEntryPath(userID, entry.ID): entry,
	})
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}

// List returns the newest entries first. A limit of zero returns everything.
func (s *HistoryService) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	items, err := ledger.ListJSON[domain.HistoryEntry](ctx, s.store, ledger.HistoryPath(userID))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(items))
	for _, e := range items {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *HistoryService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Update(ctx, map[string]any{ledger.HistoryPath(userID): nil}); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
