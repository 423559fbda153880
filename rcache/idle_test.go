package rcache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is an adjustable time source for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestSetGet(t *testing.T) {
	c := NewIdle[string](time.Minute)
	defer c.Close()

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get after Set: ok=%v got=%q", ok, got)
	}
	if _, ok := c.Get("absent"); ok {
		t.Fatalf("Get on absent key must miss")
	}
}

func TestIdleExpiry(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[int](30*time.Second, WithClock(clk.Now))
	defer c.Close()

	c.Set("k", 1)

	clk.Advance(29 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry expired before idle duration elapsed")
	}

	clk.Advance(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry should be expired after idle duration with no access")
	}
}

func TestAccessSlidesDeadline(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[int](30*time.Second, WithClock(clk.Now))
	defer c.Close()

	c.Set("k", 1)

	// Touch the entry every 20s; it must survive well past the idle window.
	for i := 0; i < 5; i++ {
		clk.Advance(20 * time.Second)
		if _, ok := c.Get("k"); !ok {
			t.Fatalf("entry expired despite access at step %d", i)
		}
	}
}

func TestSetSlidesDeadline(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[int](30*time.Second, WithClock(clk.Now))
	defer c.Close()

	c.Set("k", 1)
	clk.Advance(25 * time.Second)
	c.Set("k", 2)
	clk.Advance(25 * time.Second)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Fatalf("Set should reset the idle timer: ok=%v got=%d", ok, got)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[int](10*time.Second, WithClock(clk.Now))
	defer c.Close()

	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	clk.Advance(time.Minute)

	c.sweep()
	for _, s := range c.shards {
		s.mu.RLock()
		n := len(s.items)
		s.mu.RUnlock()
		if n != 0 {
			t.Fatalf("sweep left %d expired entries behind", n)
		}
	}
}

func TestLen(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[int](10*time.Second, WithClock(clk.Now))
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	if got := c.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	clk.Advance(time.Minute)
	if got := c.Len(); got != 0 {
		t.Fatalf("Len after expiry = %d, want 0", got)
	}
}

func TestZeroIdleNeverExpires(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[int](0, WithClock(clk.Now))
	defer c.Close()

	c.Set("k", 1)
	clk.Advance(24 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("idle=0 cache must not expire entries")
	}
}

func TestCloseIdempotent(t *testing.T) {
	c := NewIdle[int](time.Minute)
	c.Close()
	c.Close()
}

func TestConcurrentAccess(t *testing.T) {
	c := NewIdle[int](time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("k%d", i%17)
				c.Set(k, g*1000+i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()
}

func TestEvictionKeepsHandedOutValues(t *testing.T) {
	clk := newFakeClock()
	c := NewIdle[*[]byte](10*time.Second, WithClock(clk.Now))
	defer c.Close()

	v := []byte("payload")
	c.Set("k", &v)
	held, ok := c.Get("k")
	if !ok {
		t.Fatalf("Get: miss")
	}

	clk.Advance(time.Minute)
	c.sweep()

	// The cache dropped its reference; ours still works.
	if string(*held) != "payload" {
		t.Fatalf("held value corrupted after eviction")
	}
}
