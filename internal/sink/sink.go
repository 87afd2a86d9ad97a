// Package sink provides executor.Observer implementations that deliver a
// fetched payload somewhere useful.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/core/executor"
	"github.com/vietddude/fetcher/internal/infra/storage"
	"github.com/vietddude/fetcher/internal/metrics"
)

// status keeps the last delivery error of a sink.
type status struct {
	mu      sync.Mutex
	lastErr error
}

func (s *status) set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// LastError returns the error of the most recent delivery, or nil if it succeeded.
func (s *status) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// WriterSink writes each payload to an io.Writer.
type WriterSink struct {
	status
	w   io.Writer
	log *slog.Logger
}

func NewWriterSink(w io.Writer, log *slog.Logger) *WriterSink {
	if log == nil {
		log = slog.Default()
	}
	return &WriterSink{w: w, log: log}
}

func (s *WriterSink) Observe(ctx context.Context, payload []byte) {
	if _, err := s.w.Write(payload); err != nil {
		s.log.Error("Failed to write payload", "error", err)
		metrics.SinkErrorsTotal.WithLabelValues("writer").Inc()
		s.set(err)
		return
	}
	s.set(nil)
}

// ItemSink decodes a JSON array of items and stores it with one SaveBatch.
type ItemSink struct {
	status
	repo storage.ItemRepository
	log  *slog.Logger
}

func NewItemSink(repo storage.ItemRepository, log *slog.Logger) *ItemSink {
	if log == nil {
		log = slog.Default()
	}
	return &ItemSink{repo: repo, log: log}
}

func (s *ItemSink) Observe(ctx context.Context, payload []byte) {
	items, err := DecodeItems(payload)
	if err != nil {
		s.fail(err)
		return
	}

	if err := s.repo.SaveBatch(ctx, items); err != nil {
		s.fail(err)
		return
	}

	metrics.ItemsSavedTotal.Add(float64(len(items)))
	s.log.Info("Saved items", "count", len(items))
	s.set(nil)
}

func (s *ItemSink) fail(err error) {
	s.log.Error("Failed to store items", "error", err)
	metrics.SinkErrorsTotal.WithLabelValues("items").Inc()
	s.set(err)
}

// DecodeItems parses a JSON array of items.
func DecodeItems(payload []byte) ([]*domain.Item, error) {
	var items []*domain.Item
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	for i, it := range items {
		if it == nil {
			return nil, fmt.Errorf("failed to decode items: null at index %d", i)
		}
	}
	return items, nil
}

// PayloadCache stores the latest payload per locator.
type PayloadCache interface {
	SetPayload(ctx context.Context, locator string, payload []byte, ttl time.Duration) error
}

// CacheSink stores each payload under its locator.
type CacheSink struct {
	status
	cache   PayloadCache
	locator string
	ttl     time.Duration
	log     *slog.Logger
}

func NewCacheSink(cache PayloadCache, locator string, ttl time.Duration, log *slog.Logger) *CacheSink {
	if log == nil {
		log = slog.Default()
	}
	return &CacheSink{cache: cache, locator: locator, ttl: ttl, log: log}
}

func (s *CacheSink) Observe(ctx context.Context, payload []byte) {
	if err := s.cache.SetPayload(ctx, s.locator, payload, s.ttl); err != nil {
		s.log.Error("Failed to cache payload", "url", s.locator, "error", err)
		metrics.SinkErrorsTotal.WithLabelValues("cache").Inc()
		s.set(err)
		return
	}
	s.set(nil)
}

// LogSink only logs the payload size.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Observe(ctx context.Context, payload []byte) {
	s.log.Info("Payload received", "bytes", len(payload))
}

// Fanout delivers the payload to every observer in order.
type Fanout []executor.Observer

func (f Fanout) Observe(ctx context.Context, payload []byte) {
	for _, o := range f {
		o.Observe(ctx, payload)
	}
}
