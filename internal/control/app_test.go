package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/health"
	"github.com/vietddude/fetcher/internal/infra/storage/memory"
)

func itemsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"item_id": 1, "user_id": 9, "title": "lamp", "description": "red"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(jobs ...config.JobConfig) *config.AppConfig {
	cfg := &config.AppConfig{Jobs: jobs}
	cfg.ApplyDefaults()
	cfg.Server.Port = 0
	return cfg
}

func TestApp_Lifecycle(t *testing.T) {
	srv := itemsServer(t)
	ctx := context.Background()

	cfg := testConfig(config.JobConfig{Name: "items", URL: srv.URL, Schedule: "@every 1h", Store: true})
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, app.Start(ctx))

	require.NoError(t, app.RunJob(ctx, "items"))

	repo, ok := app.store.Items.(*memory.ItemRepo)
	require.True(t, ok, "expected memory store without a database url")
	assert.Equal(t, 1, repo.Count())

	report := app.Health(ctx)
	assert.Equal(t, health.StatusHealthy, report.SystemStatus)
	assert.Equal(t, 1, len(report.Jobs))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(stopCtx))
}

func TestApp_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := itemsServer(t)
	ctx := context.Background()

	cfg := testConfig(config.JobConfig{Name: "cached", URL: srv.URL, Schedule: "@every 1h", Cache: true})
	cfg.Redis.URL = "redis://" + mr.Addr()

	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, app.redisClient)

	require.NoError(t, app.RunJob(ctx, "cached"))
	payload, found, err := app.redisClient.GetPayload(ctx, srv.URL)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(payload), "lamp")

	require.NoError(t, app.Stop(ctx))
}

func TestApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.URL = "redis://127.0.0.1:1"

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, app.redisClient)
	require.NoError(t, app.Stop(context.Background()))
}

func TestApp_BadJob(t *testing.T) {
	cfg := testConfig(config.JobConfig{Name: "x", URL: "http://x", Schedule: "never"})

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestApp_FailingJobDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	ctx := context.Background()

	zero := 0
	cfg := testConfig(config.JobConfig{
		Name: "down", URL: srv.URL, Schedule: "@every 1h", MaxRetries: &zero, Timeout: time.Second,
	})
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	defer app.Stop(ctx)

	require.Error(t, app.RunJob(ctx, "down"))
	report := app.Health(ctx)
	assert.Equal(t, health.StatusDegraded, report.Jobs["down"].Status)
}
