package partstore

import (
	"errors"

	"github.com/unkn0wn-root/partstore/backend"
	"github.com/unkn0wn-root/partstore/handle"
)

// Re-exported sentinels so callers can match errors without importing the
// subpackages. Query with errors.Is; engine detail is reachable through
// errors.As on *backend.StoreError.
var (
	// ErrNotFound: the key is absent from the partition's durable store.
	// Never returned for a bare cache miss.
	ErrNotFound = backend.ErrNotFound
	// ErrDecode: stored bytes failed to decode on the read path.
	ErrDecode = backend.ErrDecode
	// ErrEncode: a value failed to encode on the write path.
	ErrEncode = backend.ErrEncode
	// ErrPoisoned: the handle's write lock was abandoned by a panicking
	// writer. Reload from the backend instead of trusting the handle.
	ErrPoisoned = handle.ErrPoisoned
)

// ErrCache reports a record-cache contract violation: an insert followed
// immediately by a lookup of the same key missed. Distinct from
// ErrNotFound, which speaks about the durable store.
var ErrCache = errors.New("partstore: cache dropped a fresh insert")
