package swrcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: the core calls them while
// holding a key's lock. Wrap slow sinks with hooks/async.
type Hooks interface {
	// Storage returned an error; the in-memory state stays authoritative.
	// op ∈ {"get", "set", "del", "encode"}
	StorageError(key, op string, err error)

	// Storage returned ok=false on Set (backpressure/eviction).
	StorageRejected(key string)

	// A stored entry was deleted on read.
	// reason ∈ {"corrupt", "value_decode", "expired"}
	SelfHeal(key, reason string)

	// A fetcher failed; the error is now part of the cached state.
	FetchFailed(key string, err error)

	// A fetch was cancelled or timed out.
	FetchAborted(key string, err error)

	// An unforced fetch was skipped because the key is cooling down.
	CooldownSkip(key string)

	// An optimistic update failed and the last confirmed state was restored.
	OptimisticRollback(key, op string, err error)

	// An expired, unobserved state was dropped from memory.
	// reason ∈ {"expired", "unsubscribed"}
	Evicted(key, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StorageError(string, string, error)       {}
func (NopHooks) StorageRejected(string)                   {}
func (NopHooks) SelfHeal(string, string)                  {}
func (NopHooks) FetchFailed(string, error)                {}
func (NopHooks) FetchAborted(string, error)               {}
func (NopHooks) CooldownSkip(string)                      {}
func (NopHooks) OptimisticRollback(string, string, error) {}
func (NopHooks) Evicted(string, string)                   {}
