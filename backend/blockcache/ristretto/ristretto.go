// Package ristretto provides a blockcache strategy backed by
// dgraph-io/ristretto. Fills are cost-weighted by payload size and may be
// refused by the admission policy; a refused fill is simply re-fetched
// from the inner store next time.
package ristretto

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/partstore/backend/blockcache"
)

var _ blockcache.Bytes = (*Strategy)(nil)

type Strategy struct {
	c *rc.Cache
}

type Config struct {
	NumCounters int64 // keys tracked for admission (10x expected entries)
	MaxCost     int64 // total byte budget
	BufferItems int64 // per Ristretto docs; 64 is a good default
	Metrics     bool
}

func New(cfg Config) (*Strategy, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Strategy{c: c}, nil
}

func (s *Strategy) Get(key string) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		// Unexpected entry shape; drop it.
		s.c.Del(key)
		return nil, false
	}
	return b, true
}

func (s *Strategy) Set(key string, data []byte) bool {
	return s.c.Set(key, data, int64(len(data)))
}

// Len is approximate: Ristretto tracks cost, not entry counts.
func (s *Strategy) Len() int {
	if m := s.c.Metrics; m != nil {
		return int(m.KeysAdded() - m.KeysEvicted())
	}
	return 0
}

// Close releases the cache. Not part of the Bytes contract; call it from
// the embedding process when the strategy is no longer needed.
func (s *Strategy) Close() {
	s.c.Wait()
	s.c.Close()
}
