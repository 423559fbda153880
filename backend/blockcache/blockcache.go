// Package blockcache decorates a backend Factory with a byte-level read
// cache for data records. Reads fill the cache on miss; writes update it
// only after the inner store's durable write succeeds, so the write-through
// ordering of the facade holds one level down as well. Token operations
// pass through untouched (tokens decode engine-side).
//
// Strategies must be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for a key. A Set may be refused under
// admission pressure; refusal is reported, never an error.
package blockcache

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/partstore/backend"
	"github.com/unkn0wn-root/partstore/handle"
	"github.com/unkn0wn-root/partstore/internal/keyspace"
	"github.com/unkn0wn-root/partstore/stats"
)

// Bytes is the pluggable cache strategy.
type Bytes interface {
	// Get returns the cached bytes for key, or ok=false on miss.
	Get(key string) ([]byte, bool)
	// Set stores data under key. Returns false when the strategy refused
	// the write (capacity/admission pressure).
	Set(key string, data []byte) bool
	// Len reports the number of cached entries.
	Len() int
}

// Config configures the decorator.
type Config struct {
	// Strategy is the byte cache. Required.
	Strategy Bytes
	// Stats receives hit/miss/entry counters. Nil disables collection.
	Stats stats.Collector
	// OnSetRejected is called when the strategy refuses a fill. Wire it to
	// Hooks.BlockSetRejected for observability. May be nil.
	OnSetRejected func(partition string)
}

// Factory wraps an inner Factory so every opened store reads data records
// through the shared byte cache.
type Factory[T any] struct {
	inner backend.Factory[T]
	cfg   Config
}

var _ backend.Factory[struct{}] = (*Factory[struct{}])(nil)

// Wrap decorates inner with the byte cache in cfg.
func Wrap[T any](inner backend.Factory[T], cfg Config) (*Factory[T], error) {
	if inner == nil {
		return nil, errors.New("blockcache: inner factory is required")
	}
	if cfg.Strategy == nil {
		return nil, errors.New("blockcache: strategy is required")
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.Noop{}
	}
	return &Factory[T]{inner: inner, cfg: cfg}, nil
}

func (f *Factory[T]) Open(ctx context.Context, partition string) (backend.Store[T], error) {
	s, err := f.inner.Open(ctx, partition)
	if err != nil {
		return nil, err
	}
	return &cachedStore[T]{inner: s, partition: partition, cfg: f.cfg}, nil
}

func (f *Factory[T]) Close(ctx context.Context) error {
	return f.inner.Close(ctx)
}

type cachedStore[T any] struct {
	inner     backend.Store[T]
	partition string
	cfg       Config
}

var _ backend.Store[struct{}] = (*cachedStore[struct{}])(nil)

func (s *cachedStore[T]) GetToken(ctx context.Context, key []byte) (T, error) {
	return s.inner.GetToken(ctx, key)
}

func (s *cachedStore[T]) SaveToken(ctx context.Context, key []byte, h *handle.Handle[T]) error {
	return s.inner.SaveToken(ctx, key, h)
}

func (s *cachedStore[T]) GetData(ctx context.Context, key []byte) ([]byte, error) {
	ck := keyspace.Cache(s.partition, key)
	if b, ok := s.cfg.Strategy.Get(ck); ok {
		s.cfg.Stats.IncCounter(stats.MetricBlockCacheHits, 1)
		return b, nil
	}
	s.cfg.Stats.IncCounter(stats.MetricBlockCacheMisses, 1)

	b, err := s.inner.GetData(ctx, key)
	if err != nil {
		return nil, err
	}
	s.fill(ck, b)
	return b, nil
}

func (s *cachedStore[T]) SaveData(ctx context.Context, key []byte, data []byte) error {
	if err := s.inner.SaveData(ctx, key, data); err != nil {
		return err
	}
	s.fill(keyspace.Cache(s.partition, key), data)
	return nil
}

func (s *cachedStore[T]) fill(key string, data []byte) {
	if !s.cfg.Strategy.Set(key, data) {
		if s.cfg.OnSetRejected != nil {
			s.cfg.OnSetRejected(s.partition)
		}
		return
	}
	s.cfg.Stats.SetGauge(stats.MetricBlockCacheEntries, int64(s.cfg.Strategy.Len()))
}
