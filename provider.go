package partstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/partstore/backend"
	c "github.com/unkn0wn-root/partstore/codec"
	"github.com/unkn0wn-root/partstore/handle"
	"github.com/unkn0wn-root/partstore/internal/keyspace"
	"github.com/unkn0wn-root/partstore/rcache"
	"github.com/unkn0wn-root/partstore/stats"
)

const defaultIdle = 30 * time.Second

type provider[T any] struct {
	backends backend.Factory[T]
	tokens   rcache.Cache[*handle.Handle[T]]
	data     rcache.Cache[*handle.Handle[[]byte]]
	raw      c.Codec[any]
	log      Logger
	stats    stats.Collector
	hooks    Hooks

	// flight collapses concurrent backend loads per (kind, partition, key)
	// so racing readers share one inserted handle.
	flight singleflight.Group

	closeOnce sync.Once
	closeErr  error
}

func newProvider[T any](opts Options[T]) (*provider[T], error) {
	if opts.Backends == nil {
		return nil, fmt.Errorf("partstore: backends factory is required")
	}

	p := &provider[T]{
		backends: opts.Backends,
		tokens:   opts.Tokens,
		data:     opts.Data,
	}

	if p.tokens == nil {
		p.tokens = rcache.NewIdle[*handle.Handle[T]](coalesce(opts.TokenIdle, defaultIdle))
	}
	if p.data == nil {
		p.data = rcache.NewIdle[*handle.Handle[[]byte]](coalesce(opts.DataIdle, defaultIdle))
	}
	if opts.Raw != nil {
		p.raw = opts.Raw
	} else {
		p.raw = c.Msgpack[any]{}
	}
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.stats = coalesce[stats.Collector](opts.Stats, stats.Noop{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return p, nil
}

func (p *provider[T]) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.tokens.Close()
		p.data.Close()
		p.closeErr = p.backends.Close(ctx)
	})
	return p.closeErr
}

func (p *provider[T]) GetToken(ctx context.Context, key []byte, partition string) (*handle.Handle[T], error) {
	ck := keyspace.Cache(partition, key)
	if h, ok := p.tokens.Get(ck); ok {
		p.stats.IncCounter(stats.MetricTokenCacheHits, 1)
		return h, nil
	}
	p.stats.IncCounter(stats.MetricTokenCacheMisses, 1)

	fk := keyspace.Flight(keyspace.KindToken, partition, key)
	v, err, _ := p.flight.Do(fk, func() (any, error) {
		// A concurrent flight may have filled the cache already.
		if h, ok := p.tokens.Get(ck); ok {
			return h, nil
		}
		return p.loadToken(ctx, ck, key, partition)
	})
	if err != nil {
		return nil, err
	}
	return v.(*handle.Handle[T]), nil
}

func (p *provider[T]) loadToken(ctx context.Context, ck string, key []byte, partition string) (*handle.Handle[T], error) {
	st, err := p.openStore(ctx, partition)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tok, err := st.GetToken(ctx, key)
	if err != nil {
		p.loadFailed(partition, "get_token", err)
		return nil, err
	}
	p.stats.IncCounter(stats.MetricBackendLoads, 1)
	p.stats.ObserveHistogram(stats.MetricLoadSeconds, time.Since(start).Seconds())
	p.log.Debug("token loaded from backend", Fields{"partition": partition})

	// Insert then re-read: the returned handle must be the one subsequent
	// readers will see, not merely an identical-looking construction.
	p.tokens.Set(ck, handle.New(tok))
	h, ok := p.tokens.Get(ck)
	if !ok {
		p.hooks.ReadBackMiss("token", partition)
		p.log.Error("token cache dropped a fresh insert", Fields{"partition": partition})
		return nil, fmt.Errorf("%w: token entry missing after insert", ErrCache)
	}
	return h, nil
}

func (p *provider[T]) SaveToken(ctx context.Context, key []byte, h *handle.Handle[T], partition string) error {
	if h == nil {
		return fmt.Errorf("partstore: nil token handle")
	}
	st, err := p.openStore(ctx, partition)
	if err != nil {
		return err
	}

	// Durable write first; the store encodes under the handle's write lock.
	if err := st.SaveToken(ctx, key, h); err != nil {
		if errors.Is(err, ErrPoisoned) {
			p.hooks.PoisonedHandle("save_token", partition)
		}
		p.loadFailed(partition, "save_token", err)
		return err
	}
	p.stats.IncCounter(stats.MetricBackendWrites, 1)

	// Install the caller's handle, not a copy: caller and cache now share
	// one value object.
	p.tokens.Set(keyspace.Cache(partition, key), h)
	p.log.Debug("token saved", Fields{"partition": partition})
	return nil
}

func (p *provider[T]) GetData(ctx context.Context, key []byte, partition string) (*handle.Handle[[]byte], error) {
	ck := keyspace.Cache(partition, key)
	if h, ok := p.data.Get(ck); ok {
		p.stats.IncCounter(stats.MetricDataCacheHits, 1)
		return h, nil
	}
	p.stats.IncCounter(stats.MetricDataCacheMisses, 1)

	fk := keyspace.Flight(keyspace.KindData, partition, key)
	v, err, _ := p.flight.Do(fk, func() (any, error) {
		if h, ok := p.data.Get(ck); ok {
			return h, nil
		}
		return p.loadData(ctx, ck, key, partition)
	})
	if err != nil {
		return nil, err
	}
	return v.(*handle.Handle[[]byte]), nil
}

func (p *provider[T]) loadData(ctx context.Context, ck string, key []byte, partition string) (*handle.Handle[[]byte], error) {
	st, err := p.openStore(ctx, partition)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	b, err := st.GetData(ctx, key)
	if err != nil {
		p.loadFailed(partition, "get_data", err)
		return nil, err
	}
	p.stats.IncCounter(stats.MetricBackendLoads, 1)
	p.stats.ObserveHistogram(stats.MetricLoadSeconds, time.Since(start).Seconds())
	p.log.Debug("data loaded from backend", Fields{"partition": partition})

	p.data.Set(ck, handle.New(b))
	h, ok := p.data.Get(ck)
	if !ok {
		p.hooks.ReadBackMiss("data", partition)
		p.log.Error("data cache dropped a fresh insert", Fields{"partition": partition})
		return nil, fmt.Errorf("%w: data entry missing after insert", ErrCache)
	}
	return h, nil
}

func (p *provider[T]) SaveData(ctx context.Context, key []byte, data []byte, partition string) error {
	st, err := p.openStore(ctx, partition)
	if err != nil {
		return err
	}
	return p.saveDataThrough(ctx, st, key, data, partition)
}

func (p *provider[T]) SaveTypedData(ctx context.Context, key []byte, value any, partition string) error {
	b, err := p.raw.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return p.SaveData(ctx, key, b, partition)
}

func (p *provider[T]) SaveLockedData(ctx context.Context, key []byte, lv handle.Locked, partition string) error {
	if lv == nil {
		return fmt.Errorf("partstore: nil locked value")
	}
	// Encode under the value's write lock; the caller has already mutated
	// behind it.
	b, err := lv.EncodeLocked(p.raw)
	if err != nil {
		if errors.Is(err, ErrPoisoned) {
			p.hooks.PoisonedHandle("save_locked_data", partition)
			return err
		}
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return p.SaveData(ctx, key, b, partition)
}

// saveDataThrough persists durably, then replaces the cached handle with a
// fresh one around the written bytes.
func (p *provider[T]) saveDataThrough(ctx context.Context, st backend.Store[T], key, data []byte, partition string) error {
	if err := st.SaveData(ctx, key, data); err != nil {
		p.loadFailed(partition, "save_data", err)
		return err
	}
	p.stats.IncCounter(stats.MetricBackendWrites, 1)

	p.data.Set(keyspace.Cache(partition, key), handle.New(data))
	p.log.Debug("data saved", Fields{"partition": partition})
	return nil
}

func (p *provider[T]) openStore(ctx context.Context, partition string) (backend.Store[T], error) {
	st, err := p.backends.Open(ctx, partition)
	if err != nil {
		p.loadFailed(partition, "open", err)
		return nil, err
	}
	return st, nil
}

// loadFailed records engine faults. Sentinel outcomes (not found, decode,
// poisoned) are caller-facing results, not engine faults.
func (p *provider[T]) loadFailed(partition, op string, err error) {
	var se *backend.StoreError
	if !errors.As(err, &se) {
		return
	}
	p.stats.IncCounter(stats.MetricBackendErrors, 1)
	p.hooks.StoreFault(partition, op, err)
	p.log.Warn("backend operation failed", Fields{
		"partition": partition,
		"op":        op,
		"err":       err.Error(),
	})
}
