// Package bigcache provides a blockcache strategy backed by
// allegro/bigcache. Entries age out with the cache's global LifeWindow;
// there is no per-entry control.
package bigcache

import (
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/partstore/backend/blockcache"
)

var _ blockcache.Bytes = (*Strategy)(nil)

type Strategy struct {
	c *bc.BigCache
}

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Strategy, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Strategy{c: c}, nil
}

func (s *Strategy) Get(key string) ([]byte, bool) {
	b, err := s.c.Get(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s *Strategy) Set(key string, data []byte) bool {
	return s.c.Set(key, data) == nil
}

func (s *Strategy) Len() int {
	return s.c.Len()
}

// Close releases the cache. Not part of the Bytes contract.
func (s *Strategy) Close() error {
	return s.c.Close()
}
