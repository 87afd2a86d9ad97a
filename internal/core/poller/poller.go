// Package poller runs configured fetch jobs on cron schedules.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/core/executor"
	"github.com/vietddude/fetcher/internal/infra/storage"
	"github.com/vietddude/fetcher/internal/metrics"
	"github.com/vietddude/fetcher/internal/sink"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("duplicate job name")
)

// Job is a URL fetched on a schedule.
type Job struct {
	Name       string
	URL        string
	Schedule   string
	MaxRetries int
	Timeout    time.Duration
	Store      bool
	Cache      bool
}

// Runner executes one fetch run. *executor.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, locator string, observer executor.Observer, maxRetries int, timeout time.Duration) error
}

type lastErrorer interface {
	LastError() error
}

type jobState struct {
	job      Job
	observer executor.Observer
	checks   []lastErrorer

	run sync.Mutex // one run at a time, cron or manual

	mu     sync.Mutex
	status domain.JobStatus
}

// Poller owns a cron scheduler and the state of every job on it.
type Poller struct {
	runner   Runner
	store    storage.ItemRepository
	cache    sink.PayloadCache
	cacheTTL time.Duration
	log      *slog.Logger

	cron  *cron.Cron
	jobs  map[string]*jobState
	order []string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Poller)

// WithStore enables ItemSink for jobs with Store set.
func WithStore(repo storage.ItemRepository) Option {
	return func(p *Poller) { p.store = repo }
}

// WithCache enables CacheSink for jobs with Cache set.
func WithCache(c sink.PayloadCache, ttl time.Duration) Option {
	return func(p *Poller) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// New validates the jobs and registers them on a scheduler. Nothing runs
// until Start.
func New(runner Runner, jobs []Job, opts ...Option) (*Poller, error) {
	p := &Poller{
		runner: runner,
		log:    slog.Default(),
		jobs:   make(map[string]*jobState, len(jobs)),
	}
	for _, opt := range opts {
		opt(p)
	}

	logger := cronLogger{log: p.log}
	p.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	for _, job := range jobs {
		if job.Name == "" || job.URL == "" {
			return nil, fmt.Errorf("job %q: name and url are required", job.Name)
		}
		if _, ok := p.jobs[job.Name]; ok {
			return nil, fmt.Errorf("job %q: %w", job.Name, ErrDuplicateJob)
		}

		st := p.newJobState(job)
		if _, err := p.cron.AddFunc(job.Schedule, func() {
			_ = p.runJob(p.baseContext(), st)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule job %q: %w", job.Name, err)
		}
		p.jobs[job.Name] = st
		p.order = append(p.order, job.Name)
	}

	return p, nil
}

func (p *Poller) newJobState(job Job) *jobState {
	log := p.log.With("job", job.Name)
	st := &jobState{
		job:    job,
		status: domain.JobStatus{Name: job.Name, URL: job.URL},
	}

	var chain sink.Fanout
	if job.Store {
		if p.store != nil {
			s := sink.NewItemSink(p.store, log)
			chain = append(chain, s)
			st.checks = append(st.checks, s)
		} else {
			log.Warn("Job wants a store but none is configured")
		}
	}
	if job.Cache {
		if p.cache != nil {
			s := sink.NewCacheSink(p.cache, job.URL, p.cacheTTL, log)
			chain = append(chain, s)
			st.checks = append(st.checks, s)
		} else {
			log.Warn("Job wants a cache but redis is not configured")
		}
	}
	if len(chain) == 0 {
		chain = append(chain, sink.NewLogSink(log))
	}
	st.observer = chain

	return st
}

// Start begins scheduling. Runs use ctx as their parent.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.cron.Start()
	p.log.Info("Poller started", "jobs", len(p.jobs))
}

// Stop cancels in-flight runs and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	<-p.cron.Stop().Done()
	p.log.Info("Poller stopped")
}

func (p *Poller) baseContext() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// RunOnce runs the named job now and returns its result.
func (p *Poller) RunOnce(ctx context.Context, name string) error {
	st, ok := p.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return p.runJob(ctx, st)
}

func (p *Poller) runJob(ctx context.Context, st *jobState) error {
	st.run.Lock()
	defer st.run.Unlock()

	start := time.Now()
	err := p.runner.Run(ctx, st.job.URL, st.observer, st.job.MaxRetries, st.job.Timeout)
	if err == nil {
		for _, c := range st.checks {
			if serr := c.LastError(); serr != nil {
				err = fmt.Errorf("failed to deliver payload: %w", serr)
				break
			}
		}
	}

	// Shutdown is not a job failure.
	if err != nil && ctx.Err() != nil {
		return err
	}

	st.record(start, err)
	if err != nil {
		p.log.Warn("Job failed", "job", st.job.Name, "url", st.job.URL, "error", err)
		return err
	}

	metrics.JobLastSuccess.WithLabelValues(st.job.Name).Set(float64(start.Unix()))
	p.log.Debug("Job succeeded", "job", st.job.Name, "duration", time.Since(start))
	return nil
}

func (st *jobState) record(at time.Time, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.status.LastRunAt = at
	if err != nil {
		st.status.LastError = err.Error()
		st.status.FailureCount++
		st.status.ConsecutiveFailures++
		return
	}
	st.status.LastError = ""
	st.status.LastSuccessAt = at
	st.status.SuccessCount++
	st.status.ConsecutiveFailures = 0
}

// Status returns the state of one job.
func (p *Poller) Status(name string) (domain.JobStatus, bool) {
	st, ok := p.jobs[name]
	if !ok {
		return domain.JobStatus{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status, true
}

// Statuses returns the state of every job in configuration order.
func (p *Poller) Statuses() []domain.JobStatus {
	out := make([]domain.JobStatus, 0, len(p.order))
	for _, name := range p.order {
		s, _ := p.Status(name)
		out = append(out, s)
	}
	return out
}

// cronLogger sends cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
