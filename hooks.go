package partstore

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The facade calls them on hot paths.
type Hooks interface {
	// A fresh cache insert was invisible on immediate re-read (the ErrCache
	// path). kind ∈ {"token", "data"}.
	ReadBackMiss(kind, partition string)

	// An operation rejected a poisoned handle.
	// op ∈ {"save_token", "save_locked_data"}
	PoisonedHandle(op, partition string)

	// The storage engine failed a load or save.
	// op ∈ {"open", "get_token", "save_token", "get_data", "save_data"}
	StoreFault(partition, op string, err error)

	// The byte-cache strategy refused a fill (admission pressure). Fired
	// only when blockcache is wired to this hook.
	BlockSetRejected(partition string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ReadBackMiss(string, string)       {}
func (NopHooks) PoisonedHandle(string, string)     {}
func (NopHooks) StoreFault(string, string, error)  {}
func (NopHooks) BlockSetRejected(string)           {}
