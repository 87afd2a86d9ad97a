package storage

import (
	"context"
	"errors"

	"github.com/vietddude/fetcher/internal/core/domain"
)

var (
	// ErrDuplicateItem is returned when a batch contains an item_id that already
	// exists in the store or appears twice in the batch itself.
	ErrDuplicateItem = errors.New("duplicate item")
)

// ItemRepository handles item storage operations
type ItemRepository interface {
	// CreateSchema creates the items table if it does not exist
	CreateSchema(ctx context.Context) error

	// SaveBatch inserts all items in a single bulk operation.
	// The whole batch is rejected with ErrDuplicateItem if any item_id collides.
	SaveBatch(ctx context.Context, items []*domain.Item) error

	// FindSimilar returns every item with exactly this owner, title and description
	FindSimilar(
		ctx context.Context,
		userID int64,
		title string,
		description string,
	) ([]*domain.Item, error)

	// Health reports whether the backing store is reachable
	Health(ctx context.Context) error
}
