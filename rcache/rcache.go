// Package rcache provides the in-memory record cache used by partstore:
// a concurrent map from string key to value with idle (sliding) expiry.
// The idle timer resets on every Get hit and every Set; entries untouched
// for the configured duration become invisible immediately and are removed
// by a janitor goroutine. Eviction drops only the cache's reference; values
// already handed to callers stay valid.
package rcache

// Cache is the record-cache capability consumed by the partstore facade.
// Implementations must be safe for concurrent use without external locking.
type Cache[V any] interface {
	// Get returns the cached value and resets its idle timer.
	Get(key string) (V, bool)
	// Set stores v and resets the idle timer. An existing value for key is
	// replaced.
	Set(key string, v V)
	// Len reports the number of live (non-expired) entries.
	Len() int
	// Close stops background eviction. The cache stays readable.
	Close()
}
