package domain

import "time"

// JobStatus is the last known state of a scheduled fetch job.
type JobStatus struct {
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
	LastError           string    `json:"last_error,omitempty"`
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}
