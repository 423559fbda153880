// Package handle provides the shared, lock-guarded value wrapper returned
// by partstore reads. One Handle is jointly owned by the cache and every
// caller that received it: mutating through one holder is visible to all.
//
// A writer that panics mid-mutation leaves the handle poisoned. Every
// later operation on a poisoned handle returns ErrPoisoned; the value is
// never silently served again. Callers should drop the handle and reload
// from the backend.
package handle

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoisoned marks a handle whose writer did not finish cleanly.
var ErrPoisoned = errors.New("handle: poisoned by a writer that did not finish")

// Encoder erases a codec for EncodeLocked. codec.Codec[any] satisfies it.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Locked is the type-erased view of a Handle used by the facade's
// SaveLockedData path: encode the value while holding the write lock.
type Locked interface {
	EncodeLocked(enc Encoder) ([]byte, error)
}

// Handle is a reference-counted (by Go's GC), RW-locked wrapper around a
// single value. The zero value is not usable; construct with New.
type Handle[T any] struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
	v        T
}

var _ Locked = (*Handle[struct{}])(nil)

// New wraps v in a fresh, unlocked handle.
func New[T any](v T) *Handle[T] {
	return &Handle[T]{v: v}
}

// Value returns a snapshot of the current value under the shared lock.
// For pointer-shaped T the snapshot still aliases the pointee.
func (h *Handle[T]) Value() (T, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.poisoned.Load() {
		var zero T
		return zero, ErrPoisoned
	}
	return h.v, nil
}

// View calls fn with the value under the shared lock. fn must not retain
// or mutate the value.
func (h *Handle[T]) View(fn func(T)) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.poisoned.Load() {
		return ErrPoisoned
	}
	fn(h.v)
	return nil
}

// Update calls fn with exclusive access to the value. A panic inside fn
// poisons the handle before propagating.
func (h *Handle[T]) Update(fn func(*T)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.poisoned.Load() {
		return ErrPoisoned
	}
	defer h.poisonOnPanic()
	fn(&h.v)
	return nil
}

// EncodeWith serializes the value while holding the exclusive lock, so no
// concurrent writer can tear the encoded bytes. A panic inside enc poisons
// the handle before propagating.
func (h *Handle[T]) EncodeWith(enc func(T) ([]byte, error)) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.poisoned.Load() {
		return nil, ErrPoisoned
	}
	defer h.poisonOnPanic()
	return enc(h.v)
}

// EncodeLocked implements Locked over EncodeWith.
func (h *Handle[T]) EncodeLocked(enc Encoder) ([]byte, error) {
	return h.EncodeWith(func(v T) ([]byte, error) { return enc.Encode(v) })
}

// Poisoned reports whether a writer left the handle unusable.
func (h *Handle[T]) Poisoned() bool { return h.poisoned.Load() }

func (h *Handle[T]) poisonOnPanic() {
	if r := recover(); r != nil {
		h.poisoned.Store(true)
		panic(r)
	}
}
