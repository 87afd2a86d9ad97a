package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/core/executor"
	"github.com/vietddude/fetcher/internal/core/poller"
	"github.com/vietddude/fetcher/internal/health"
	"github.com/vietddude/fetcher/internal/infra/fetch"
	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
)

// App wires the store, cache, fetcher, scheduler and health server together.
type App struct {
	cfg          *config.AppConfig
	store        *Store
	redisClient  *redisclient.Client
	fetcher      *fetch.HTTPFetcher
	executor     *executor.Executor
	poller       *poller.Poller
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
	cancel       context.CancelFunc
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	// 1. Storage
	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. Cache (optional, the service runs without it)
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, payload cache disabled", "error", err)
			redisClient = nil
		}
	}

	// 3. Fetcher and executor
	fetcher := NewFetcher(cfg.Fetch)
	exec := executor.New(fetcher, executor.WithLogger(log))

	// 4. Scheduler
	jobs := make([]poller.Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		jobs = append(jobs, poller.Job{
			Name:       j.Name,
			URL:        j.URL,
			Schedule:   j.Schedule,
			MaxRetries: j.Retries(),
			Timeout:    j.Timeout,
			Store:      j.Store,
			Cache:      j.Cache,
		})
	}
	popts := []poller.Option{poller.WithStore(store.Items), poller.WithLogger(log)}
	if redisClient != nil {
		popts = append(popts, poller.WithCache(redisClient, redisClient.TTL()))
	}
	p, err := poller.New(exec, jobs, popts...)
	if err != nil {
		_ = fetcher.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = store.Close()
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}

	// 5. Health
	hopts := []health.MonitorOption{health.WithStore(store.Items), health.WithFetcher(fetcher)}
	if redisClient != nil {
		hopts = append(hopts, health.WithCache(redisClient))
	}
	healthMon := health.NewMonitor(p, hopts...)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &App{
		cfg:          cfg,
		store:        store,
		redisClient:  redisClient,
		fetcher:      fetcher,
		executor:     exec,
		poller:       p,
		healthMon:    healthMon,
		healthServer: healthServer,
		log:          log,
	}, nil
}

// Start starts the health server and the scheduler. It does not block.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.store.DB != nil {
		a.store.DB.StartMetricsCollector(ctx)
	}

	a.poller.Start(ctx)
	a.log.Info("Fetcher started", "jobs", len(a.cfg.Jobs), "port", a.cfg.Server.Port)
	return nil
}

// RunJob runs one configured job immediately.
func (a *App) RunJob(ctx context.Context, name string) error {
	return a.poller.RunOnce(ctx, name)
}

// Health returns the current health report.
func (a *App) Health(ctx context.Context) health.HealthReport {
	return a.healthMon.CheckHealth(ctx)
}

// Stop stops the scheduler and releases every connection.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping Fetcher...")

	if a.cancel != nil {
		a.cancel()
	}
	a.poller.Stop()

	var errs []error
	if err := a.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop health server: %w", err))
	}
	if err := a.fetcher.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close db: %w", err))
	}

	return errors.Join(errs...)
}
