package config

import (
	"time"

	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
)

const (
	DefaultPort       = 8080
	DefaultMaxRetries = 10
	DefaultTimeout    = 15 * time.Second
	DefaultSchedule   = "@every 1m"
	DefaultUserAgent  = "fetcher/1.0"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Fetch    FetchConfig        `yaml:"fetch"`
	Jobs     []JobConfig        `yaml:"jobs"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// FetchConfig holds defaults shared by every run.
type FetchConfig struct {
	MaxRetries   *int          `yaml:"max_retries"` // nil = DefaultMaxRetries; 0 is valid
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// JobConfig describes one scheduled fetch.
type JobConfig struct {
	Name       string        `yaml:"name"`
	URL        string        `yaml:"url"`
	Schedule   string        `yaml:"schedule"`
	MaxRetries *int          `yaml:"max_retries"` // nil = fetch.max_retries
	Timeout    time.Duration `yaml:"timeout"`     // 0 = fetch.timeout
	Store      bool          `yaml:"store"`
	Cache      bool          `yaml:"cache"`
}

// Retries returns the configured retry budget.
func (c FetchConfig) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// Retries returns the job's retry budget.
func (j JobConfig) Retries() int {
	if j.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *j.MaxRetries
}
