package partstore

import (
	"context"
	"time"

	"github.com/unkn0wn-root/partstore/backend"
	c "github.com/unkn0wn-root/partstore/codec"
	"github.com/unkn0wn-root/partstore/handle"
	"github.com/unkn0wn-root/partstore/rcache"
	"github.com/unkn0wn-root/partstore/stats"
)

// Provider is the partition-aware data access facade. T is the caller's
// token type; data blobs are untyped []byte. Every operation is keyed by
// (key, partition): partitions are isolation domains backed by independent
// stores, and a key present in one partition says nothing about another.
//
// All methods are safe for concurrent use. Returned handles are shared
// with the cache and with every other caller that read the same key.
type Provider[T any] interface {
	// GetToken returns the shared handle for the token under key. A cache
	// hit never touches the backend; a miss loads, caches, and returns the
	// freshly cached handle. Fails with ErrNotFound, ErrDecode, or ErrCache.
	GetToken(ctx context.Context, key []byte, partition string) (*handle.Handle[T], error)

	// SaveToken durably persists the handle's value (encoded under its
	// write lock), then installs the caller's handle - the same pointer -
	// into the token cache. Fails with ErrPoisoned or ErrEncode.
	SaveToken(ctx context.Context, key []byte, h *handle.Handle[T], partition string) error

	// GetData is the cache-aside read for raw bytes; no codec on this path.
	GetData(ctx context.Context, key []byte, partition string) (*handle.Handle[[]byte], error)

	// SaveData durably persists data, then installs a fresh handle around
	// it in the data cache, replacing any prior handle for the key.
	SaveData(ctx context.Context, key []byte, data []byte, partition string) error

	// SaveTypedData encodes value with the Raw codec and behaves as
	// SaveData with the resulting bytes.
	SaveTypedData(ctx context.Context, key []byte, value any, partition string) error

	// SaveLockedData encodes the locked value under its write lock (the
	// mutate-in-place-then-persist path), persists, and caches the encoded
	// bytes as a fresh data entry. Fails with ErrPoisoned or ErrEncode.
	SaveLockedData(ctx context.Context, key []byte, lv handle.Locked, partition string) error

	// Close stops cache eviction and closes the backend factory.
	Close(ctx context.Context) error
}

// Options tune the provider. Only Backends is required; others have
// sensible defaults.
type Options[T any] struct {
	// Required
	Backends backend.Factory[T]

	// Tokens and Data override the default idle caches. When nil, idle
	// caches are built from TokenIdle/DataIdle.
	Tokens rcache.Cache[*handle.Handle[T]]
	Data   rcache.Cache[*handle.Handle[[]byte]]

	TokenIdle time.Duration // 0 => 30s
	DataIdle  time.Duration // 0 => 30s

	// Raw encodes SaveTypedData/SaveLockedData values. nil => Msgpack.
	Raw c.Codec[any]

	Logger Logger          // if nil, NopLogger is used
	Stats  stats.Collector // if nil, metrics are discarded
	Hooks  Hooks           // if nil, NopHooks is used
}

func New[T any](opts Options[T]) (Provider[T], error) {
	return newProvider[T](opts)
}
