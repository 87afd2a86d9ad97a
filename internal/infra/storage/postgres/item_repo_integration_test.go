//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
)

func setupPostgres(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("FETCHER_TEST_DB_URL"); url != "" {
		return url
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "fetcher",
			"POSTGRES_PASSWORD": "fetcher",
			"POSTGRES_DB":       "fetcher_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://fetcher:fetcher@%s:%s/fetcher_test?sslmode=disable", host, port.Port())
}

func newTestRepo(t *testing.T, driver string) *ItemRepo {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, Config{URL: setupPostgres(t), Driver: driver, ConnectAttempts: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewItemRepo(db)
	require.NoError(t, repo.CreateSchema(ctx))
	// Schema creation is idempotent.
	require.NoError(t, repo.CreateSchema(ctx))

	_, err = db.ExecContext(ctx, "TRUNCATE items")
	require.NoError(t, err)
	return repo
}

func TestItemRepo_Integration(t *testing.T) {
	for _, driver := range []string{"pgx", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepo(t, driver)

			err := repo.SaveBatch(ctx, []*domain.Item{
				{ItemID: 2, UserID: 10, Title: "chair", Description: "oak"},
				{ItemID: 1, UserID: 10, Title: "chair", Description: "oak"},
				{ItemID: 3, UserID: 10, Title: "chair", Description: "pine"},
				{ItemID: 4, UserID: 11, Title: "chair", Description: "oak"},
			})
			require.NoError(t, err)

			found, err := repo.FindSimilar(ctx, 10, "chair", "oak")
			require.NoError(t, err)
			require.Len(t, found, 2)
			assert.Equal(t, int64(1), found[0].ItemID)
			assert.Equal(t, int64(2), found[1].ItemID)

			none, err := repo.FindSimilar(ctx, 99, "chair", "oak")
			require.NoError(t, err)
			assert.Empty(t, none)

			err = repo.SaveBatch(ctx, []*domain.Item{
				{ItemID: 5, UserID: 10, Title: "chair", Description: "oak"},
				{ItemID: 1, UserID: 10, Title: "dup", Description: "dup"},
			})
			assert.ErrorIs(t, err, storage.ErrDuplicateItem)

			// The rejected batch leaves nothing behind.
			found, err = repo.FindSimilar(ctx, 10, "chair", "oak")
			require.NoError(t, err)
			assert.Len(t, found, 2)

			assert.NoError(t, repo.Health(ctx))
		})
	}
}
