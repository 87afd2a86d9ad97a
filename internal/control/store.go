package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/infra/fetch"
	"github.com/vietddude/fetcher/internal/infra/storage"
	"github.com/vietddude/fetcher/internal/infra/storage/memory"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
)

// Store is an item repository plus whatever owns its connection.
type Store struct {
	Items storage.ItemRepository
	DB    *postgres.DB // nil in memory mode
}

// OpenStore connects to PostgreSQL and applies migrations when a database
// URL is configured, and falls back to an in-memory store otherwise.
func OpenStore(ctx context.Context, cfg postgres.Config) (*Store, error) {
	if cfg.URL == "" {
		slog.Info("Using Memory storage")
		return &Store{Items: memory.NewItemRepo()}, nil
	}

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}

	repo := postgres.NewItemRepo(db)
	if err := repo.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	slog.Info("Using PostgreSQL storage", "driver", cfg.Driver)
	return &Store{Items: repo, DB: db}, nil
}

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewFetcher builds the HTTP fetcher from the fetch settings.
func NewFetcher(cfg config.FetchConfig) *fetch.HTTPFetcher {
	opts := []fetch.Option{fetch.WithUserAgent(cfg.UserAgent)}
	if cfg.MaxBodyBytes > 0 {
		opts = append(opts, fetch.WithMaxBodyBytes(cfg.MaxBodyBytes))
	}
	return fetch.NewHTTPFetcher("http", opts...)
}
