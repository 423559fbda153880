package rcache

import (
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"
)

const defaultShardCount = 16

// Option configures an Idle cache.
type Option func(*config)

type config struct {
	shards int
	sweep  time.Duration
	now    func() time.Time
}

// WithShards sets the shard count. Non-power-of-two values fall back to
// the default.
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

// WithSweepInterval sets how often the janitor scans for expired entries.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) { c.sweep = d }
}

// WithClock injects a time source. Tests use this to drive expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Idle is a sharded map with sliding idle expiry.
type Idle[V any] struct {
	shards    []*shard[V]
	shardMask uint64
	seed      maphash.Seed

	idle time.Duration
	now  func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]*entry[V]
}

type entry[V any] struct {
	v        V
	deadline atomic.Int64 // unix nanos; bumped on every access
}

var _ Cache[int] = (*Idle[int])(nil)

// NewIdle builds an Idle cache evicting entries untouched for idle.
// idle <= 0 disables expiry entirely (entries live until Close or
// replacement).
func NewIdle[V any](idle time.Duration, opts ...Option) *Idle[V] {
	cfg := config{shards: defaultShardCount, now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.shards <= 0 || cfg.shards&(cfg.shards-1) != 0 {
		cfg.shards = defaultShardCount
	}
	if cfg.sweep <= 0 {
		cfg.sweep = idle / 2
		if cfg.sweep < time.Second {
			cfg.sweep = time.Second
		}
	}

	c := &Idle[V]{
		shards:    make([]*shard[V], cfg.shards),
		shardMask: uint64(cfg.shards - 1),
		seed:      maphash.MakeSeed(),
		idle:      idle,
		now:       cfg.now,
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{items: make(map[string]*entry[V])}
	}

	if idle > 0 {
		c.ticker = time.NewTicker(cfg.sweep)
		c.stopCh = make(chan struct{})
		c.wg.Add(1)
		go c.sweepLoop()
	}
	return c
}

func (c *Idle[V]) shardFor(key string) *shard[V] {
	h := maphash.String(c.seed, key)
	return c.shards[h&c.shardMask]
}

// Get returns the value for key and slides its idle deadline forward.
// An expired entry is a miss even before the janitor removes it.
func (c *Idle[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	now := c.now().UnixNano()
	if c.idle > 0 {
		if now > e.deadline.Load() {
			return zero, false
		}
		e.deadline.Store(now + int64(c.idle))
	}
	return e.v, true
}

// Set stores v under key with a fresh idle deadline.
func (c *Idle[V]) Set(key string, v V) {
	e := &entry[V]{v: v}
	if c.idle > 0 {
		e.deadline.Store(c.now().Add(c.idle).UnixNano())
	}
	s := c.shardFor(key)
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
}

// Len counts live entries across all shards.
func (c *Idle[V]) Len() int {
	now := c.now().UnixNano()
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		for _, e := range s.items {
			if c.idle <= 0 || now <= e.deadline.Load() {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n
}

// Close stops the janitor. Safe to call multiple times.
func (c *Idle[V]) Close() {
	c.closeOnce.Do(func() {
		if c.stopCh != nil {
			close(c.stopCh)
			c.wg.Wait()
			c.ticker.Stop()
		}
	})
}

func (c *Idle[V]) sweepLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Idle[V]) sweep() {
	now := c.now().UnixNano()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if now > e.deadline.Load() {
				delete(s.items, k)
			}
		}
		s.mu.Unlock()
	}
}
