package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/fetch"
)

// JobSource reports the last known state of scheduled jobs.
type JobSource interface {
	Statuses() []domain.JobStatus
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// FetcherHealth exposes fetch statistics.
type FetcherHealth interface {
	Name() string
	Health() fetch.HealthStatus
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	jobs     JobSource
	store    Pinger
	cache    Pinger
	fetcher  FetcherHealth
	interval time.Duration

	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

type MonitorOption func(*Monitor)

// WithStore makes an unreachable store critical.
func WithStore(p Pinger) MonitorOption {
	return func(m *Monitor) { m.store = p }
}

// WithCache makes an unreachable cache degraded.
func WithCache(p Pinger) MonitorOption {
	return func(m *Monitor) { m.cache = p }
}

func WithFetcher(f FetcherHealth) MonitorOption {
	return func(m *Monitor) { m.fetcher = f }
}

// WithCheckInterval sets how long a report is reused. Zero disables reuse.
func WithCheckInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

// NewMonitor creates a new health monitor.
func NewMonitor(jobs JobSource, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		jobs:     jobs,
		interval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckHealth builds a report for every job and dependency.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Pings hit the network, so reuse recent results.
	if m.lastReport != nil && time.Since(m.lastCheck) < m.interval {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Jobs:         make(map[string]JobHealth),
		Components:   make(map[string]ComponentHealth),
		CheckedAt:    time.Now(),
	}

	if m.jobs != nil {
		for _, st := range m.jobs.Statuses() {
			jh := JobHealth{
				Name:                st.Name,
				URL:                 st.URL,
				Status:              jobStatus(st),
				LastRunAt:           st.LastRunAt,
				LastSuccessAt:       st.LastSuccessAt,
				LastError:           st.LastError,
				ConsecutiveFailures: st.ConsecutiveFailures,
			}
			report.Jobs[st.Name] = jh
			report.SystemStatus = worse(report.SystemStatus, jh.Status)
		}
	}

	if m.store != nil {
		c := ping(ctx, m.store, StatusCritical)
		report.Components["store"] = c
		report.SystemStatus = worse(report.SystemStatus, c.Status)
	}
	if m.cache != nil {
		c := ping(ctx, m.cache, StatusDegraded)
		report.Components["cache"] = c
		report.SystemStatus = worse(report.SystemStatus, c.Status)
	}

	if m.fetcher != nil {
		report.Fetcher = m.fetcher.Name()
		report.FetcherErrorRate = m.fetcher.Health().ErrorRate
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

func jobStatus(st domain.JobStatus) SystemStatus {
	switch {
	case st.ConsecutiveFailures >= criticalFailures:
		return StatusCritical
	case st.ConsecutiveFailures > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func ping(ctx context.Context, p Pinger, onFailure SystemStatus) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.Health(ctx); err != nil {
		return ComponentHealth{Status: onFailure, Error: err.Error()}
	}
	return ComponentHealth{Status: StatusHealthy}
}
