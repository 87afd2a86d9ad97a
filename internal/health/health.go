// Package health provides system health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// criticalFailures is the number of consecutive failed runs that makes a job critical.
const criticalFailures = 3

// JobHealth contains health data for one scheduled job.
type JobHealth struct {
	Name                string       `json:"name"`
	URL                 string       `json:"url"`
	Status              SystemStatus `json:"status"`
	LastRunAt           time.Time    `json:"last_run_at"`
	LastSuccessAt       time.Time    `json:"last_success_at"`
	LastError           string       `json:"last_error,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
}

// ComponentHealth is the result of pinging a dependency.
type ComponentHealth struct {
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus     SystemStatus               `json:"system_status"`
	Jobs             map[string]JobHealth       `json:"jobs"`
	Components       map[string]ComponentHealth `json:"components"`
	Fetcher          string                     `json:"fetcher,omitempty"`
	FetcherErrorRate float64                    `json:"fetcher_error_rate"`
	CheckedAt        time.Time                  `json:"checked_at"`
}

// worse returns the more severe of two statuses.
func worse(a, b SystemStatus) SystemStatus {
	rank := func(s SystemStatus) int {
		switch s {
		case StatusCritical:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
