// Package redisstore implements the partstore backend on Redis. One client
// serves every partition; records are isolated by key prefix
// (<prefix>:<partition>:<kind-tagged key>). Suited for deployments where
// the durable store is a shared Redis (AOF/replicated) rather than local
// disk.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/partstore/backend"
	"github.com/unkn0wn-root/partstore/codec"
	"github.com/unkn0wn-root/partstore/handle"
	"github.com/unkn0wn-root/partstore/internal/keyspace"
)

var ErrNilClient = errors.New("redisstore: nil client")

// Config configures a redis-backed Factory.
type Config struct {
	Client goredis.UniversalClient
	// Prefix namespaces every key this factory writes. Default "partstore".
	Prefix string
	// CloseClient releases the client on factory Close. Set true only if
	// the factory exclusively owns the client.
	CloseClient bool
}

// Factory hands out stateless per-partition views over one client.
type Factory[T any] struct {
	rdb         goredis.UniversalClient
	prefix      string
	codec       codec.Codec[T]
	closeClient bool
}

var _ backend.Factory[struct{}] = (*Factory[struct{}])(nil)

// NewFactory builds a Factory encoding tokens with c.
// A nil c defaults to codec.Msgpack[T].
func NewFactory[T any](cfg Config, c codec.Codec[T]) (*Factory[T], error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if c == nil {
		c = codec.Msgpack[T]{}
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "partstore"
	}
	return &Factory[T]{
		rdb:         cfg.Client,
		prefix:      prefix,
		codec:       c,
		closeClient: cfg.CloseClient,
	}, nil
}

// Open returns the partition's view. Opening is free; Redis namespaces by
// key prefix, so every partition "exists" from the first write.
func (f *Factory[T]) Open(_ context.Context, partition string) (backend.Store[T], error) {
	return &store[T]{
		rdb:       f.rdb,
		codec:     f.codec,
		prefix:    f.prefix,
		partition: partition,
	}, nil
}

// Close releases the underlying client only when this factory owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (f *Factory[T]) Close(context.Context) error {
	if f.closeClient {
		if err := f.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type store[T any] struct {
	rdb       goredis.UniversalClient
	codec     codec.Codec[T]
	prefix    string
	partition string
}

var _ backend.Store[struct{}] = (*store[struct{}])(nil)

func (s *store[T]) GetToken(ctx context.Context, key []byte) (T, error) {
	var zero T
	raw, err := s.get(ctx, keyspace.Token(key))
	if err != nil {
		return zero, err
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", backend.ErrDecode, err)
	}
	return v, nil
}

func (s *store[T]) SaveToken(ctx context.Context, key []byte, h *handle.Handle[T]) error {
	b, err := h.EncodeWith(s.codec.Encode)
	if err != nil {
		if errors.Is(err, handle.ErrPoisoned) {
			return err
		}
		return fmt.Errorf("%w: %w", backend.ErrEncode, err)
	}
	return s.put(ctx, keyspace.Token(key), b)
}

func (s *store[T]) GetData(ctx context.Context, key []byte) ([]byte, error) {
	return s.get(ctx, keyspace.Data(key))
}

func (s *store[T]) SaveData(ctx context.Context, key []byte, data []byte) error {
	return s.put(ctx, keyspace.Data(key), data)
}

func (s *store[T]) get(ctx context.Context, key []byte) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err == goredis.Nil {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, &backend.StoreError{Partition: s.partition, Op: "get", Err: err}
	}
	return b, nil
}

func (s *store[T]) put(ctx context.Context, key, value []byte) error {
	// No TTL: partstore records are durable until overwritten.
	if err := s.rdb.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return &backend.StoreError{Partition: s.partition, Op: "put", Err: err}
	}
	return nil
}

func (s *store[T]) redisKey(tagged []byte) string {
	return s.prefix + ":" + s.partition + ":" + string(tagged)
}
