package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no jobs.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyEnv()
	cfg.ApplyDefaults()
	return &cfg
}

// applyEnv fills connection URLs left empty from DATABASE_URL and REDIS_URL.
func (c *AppConfig) applyEnv() {
	if c.Database.URL == "" {
		c.Database.URL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
}

// ApplyDefaults fills unset fields.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Fetch.MaxRetries == nil {
		n := DefaultMaxRetries
		c.Fetch.MaxRetries = &n
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = DefaultTimeout
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}

	for i := range c.Jobs {
		job := &c.Jobs[i]
		if job.Schedule == "" {
			job.Schedule = DefaultSchedule
		}
		if job.MaxRetries == nil {
			n := *c.Fetch.MaxRetries
			job.MaxRetries = &n
		}
		if job.Timeout == 0 {
			job.Timeout = c.Fetch.Timeout
		}
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "pgx"
	}
	if c.Database.ConnectAttempts == 0 {
		c.Database.ConnectAttempts = 5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration after defaults are applied.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Fetch.Retries() < 0 {
		errs = append(errs, errors.New("fetch.max_retries must not be negative"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("fetch.max_body_bytes must not be negative"))
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Name == "" {
			errs = append(errs, fmt.Errorf("jobs[%d]: name is required", i))
		} else if seen[job.Name] {
			errs = append(errs, fmt.Errorf("jobs[%d]: duplicate name %q", i, job.Name))
		}
		seen[job.Name] = true

		if err := validateURL(job.URL); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d]: %w", i, err))
		}
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d]: bad schedule %q: %w", i, job.Schedule, err))
		}
		if job.Retries() < 0 {
			errs = append(errs, fmt.Errorf("jobs[%d]: max_retries must not be negative", i))
		}
		if job.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("jobs[%d]: timeout must be positive", i))
		}
	}

	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want pgx or postgres", c.Database.Driver))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q: want debug, info, warn or error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("bad url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("bad url %q: scheme must be http or https", raw)
	}
	return nil
}
