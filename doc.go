// Package partstore implements a partition-aware, cache-aside data access
// layer over a pluggable durable key-value backend. It serves two record
// kinds: structured tokens (typed, codec-serialized) and opaque data blobs.
// Reads check an in-memory idle-expiry cache first and fall back to the
// partition's store, populating the cache on miss; writes persist durably
// first and update the cache only after success.
//
// Components:
//   - backend.Factory / backend.Store: durable per-partition storage
//     (Badger and Redis engines included, plus a byte-cache decorator).
//   - handle.Handle[T]: the shared, lock-guarded value wrapper returned by
//     reads; mutation through one holder is visible to all, and a writer
//     panic poisons the handle.
//   - rcache: the idle-expiry record cache (one instance per record kind).
//   - codec.Codec[V]: (de)serializes tokens and typed data.
//
// Ordering contract: for a single key, the backend write of a save is
// ordered before its cache update. A reader racing a save observes either
// the pre-save handle or the post-save handle, never a cache state ahead
// of durable storage. No cross-key atomicity is provided.
package partstore
