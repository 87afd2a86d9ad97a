package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
	"github.com/vietddude/fetcher/internal/metrics"
)

// Postgres caps a statement at 65535 bind parameters; items use 4 each.
const maxItemsPerStatement = 65535 / 4

const insertItemsQuery = `
	INSERT INTO items (item_id, user_id, title, description)
	VALUES (:item_id, :user_id, :title, :description)
`

const findSimilarItemsQuery = `
	SELECT item_id, user_id, title, description
	FROM items
	WHERE user_id = $1
		AND title = $2
		AND description = $3
	ORDER BY item_id
`

// ItemRepo implements storage.ItemRepository using PostgreSQL.
type ItemRepo struct {
	db *DB
}

// NewItemRepo creates a new PostgreSQL item repository.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// CreateSchema creates the items table through the embedded migrations.
func (r *ItemRepo) CreateSchema(ctx context.Context) error {
	return r.db.Migrate(ctx)
}

// SaveBatch inserts items with one multi-row INSERT. Batches larger than a
// single statement allows are split, but all parts share one transaction.
func (r *ItemRepo) SaveBatch(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]domain.Item, len(items))
	for i, it := range items {
		if it == nil {
			return fmt.Errorf("failed to save items: nil item at index %d", i)
		}
		rows[i] = *it
	}

	metrics.DBBatchSize.WithLabelValues("save_items").Observe(float64(len(rows)))

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += maxItemsPerStatement {
		end := min(start+maxItemsPerStatement, len(rows))
		if _, err := tx.NamedExecContext(ctx, insertItemsQuery, rows[start:end]); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("failed to save items: %w", storage.ErrDuplicateItem)
			}
			return fmt.Errorf("failed to save items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}

// FindSimilar returns items matching owner, title and description exactly, ordered by item_id.
func (r *ItemRepo) FindSimilar(
	ctx context.Context,
	userID int64,
	title string,
	description string,
) ([]*domain.Item, error) {
	items := make([]*domain.Item, 0)
	if err := r.db.SelectContext(ctx, &items, findSimilarItemsQuery, userID, title, description); err != nil {
		return nil, fmt.Errorf("failed to find similar items: %w", err)
	}
	return items, nil
}

// Health pings the database.
func (r *ItemRepo) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}
