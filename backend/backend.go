// Package backend defines the durable storage abstraction behind partstore:
// a Factory resolves partition identifiers to Stores, and a Store persists
// token and data records for exactly one partition.
//
// Implementations must be safe for concurrent use without external
// synchronization and must be byte-for-byte transparent on the data path:
// GetData returns exactly the bytes previously passed to SaveData for the
// same key. Absence is ErrNotFound, never an empty slice.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/partstore/handle"
)

var (
	// ErrNotFound reports a key absent from the partition's store.
	ErrNotFound = errors.New("backend: record not found")
	// ErrDecode reports stored bytes that failed to decode into a token.
	ErrDecode = errors.New("backend: stored bytes failed to decode")
	// ErrEncode reports a value that failed to encode for storage.
	ErrEncode = errors.New("backend: value failed to encode")
)

// StoreError wraps an engine-originated failure. It is opaque to callers
// beyond "storage failed"; Unwrap exposes the engine's own error for
// diagnostics.
type StoreError struct {
	Partition string
	Op        string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("backend: %s failed for partition %q: %v", e.Op, e.Partition, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store persists records for one partition.
type Store[T any] interface {
	// GetToken loads and decodes the token stored under key.
	// Fails with ErrNotFound when absent and ErrDecode on malformed bytes.
	GetToken(ctx context.Context, key []byte) (T, error)

	// SaveToken encodes the handle's value under its write lock and stores
	// the bytes durably. handle.ErrPoisoned and ErrEncode propagate.
	SaveToken(ctx context.Context, key []byte, h *handle.Handle[T]) error

	// GetData returns the raw bytes stored under key, or ErrNotFound.
	GetData(ctx context.Context, key []byte) ([]byte, error)

	// SaveData stores data durably under key with no transformation.
	SaveData(ctx context.Context, key []byte, data []byte) error
}

// Factory resolves partitions to Stores. Open must be idempotent per
// partition across process restarts: create storage if missing, reuse it
// otherwise, and fail loudly on corrupt structures.
type Factory[T any] interface {
	Open(ctx context.Context, partition string) (Store[T], error)
	// Close releases every store this factory opened.
	Close(ctx context.Context) error
}
