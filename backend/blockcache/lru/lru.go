// Package lru provides a blockcache strategy backed by hashicorp/golang-lru.
package lru

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unkn0wn-root/partstore/backend/blockcache"
)

var _ blockcache.Bytes = (*Strategy)(nil)

// Strategy evicts least-recently-used entries at a fixed capacity.
type Strategy struct {
	cache *lru.Cache[string, []byte]
}

// New builds a Strategy holding at most capacity entries.
func New(capacity int) (*Strategy, error) {
	c, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Strategy{cache: c}, nil
}

func (s *Strategy) Get(key string) ([]byte, bool) {
	return s.cache.Get(key)
}

// Set always admits; the LRU makes room by evicting.
func (s *Strategy) Set(key string, data []byte) bool {
	s.cache.Add(key, data)
	return true
}

func (s *Strategy) Len() int {
	return s.cache.Len()
}
