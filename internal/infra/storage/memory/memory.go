package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
)

// ItemRepo is an in-process ItemRepository used when no database is configured.
type ItemRepo struct {
	items map[int64]domain.Item
	mu    sync.RWMutex
}

func NewItemRepo() *ItemRepo {
	return &ItemRepo{
		items: make(map[int64]domain.Item),
	}
}

func (r *ItemRepo) CreateSchema(ctx context.Context) error {
	return nil
}

func (r *ItemRepo) SaveBatch(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check the whole batch first so a duplicate leaves the store untouched.
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it == nil {
			return fmt.Errorf("failed to save items: nil item in batch")
		}
		if _, ok := r.items[it.ItemID]; ok {
			return fmt.Errorf("item %d: %w", it.ItemID, storage.ErrDuplicateItem)
		}
		if _, ok := seen[it.ItemID]; ok {
			return fmt.Errorf("item %d: %w", it.ItemID, storage.ErrDuplicateItem)
		}
		seen[it.ItemID] = struct{}{}
	}

	for _, it := range items {
		r.items[it.ItemID] = *it
	}
	return nil
}

func (r *ItemRepo) FindSimilar(
	ctx context.Context,
	userID int64,
	title string,
	description string,
) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Item, 0)
	for _, it := range r.items {
		if it.SimilarTo(userID, title, description) {
			result = append(result, &it)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ItemID < result[j].ItemID
	})
	return result, nil
}

func (r *ItemRepo) Health(ctx context.Context) error {
	return nil
}

// Count returns the number of stored items.
func (r *ItemRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
