package asyncdata

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they are called from
// settlement paths.
type Hooks interface {
	// A settled execution was dropped because a newer execution (or a clear)
	// took over the key.
	ExecutionSuperseded(key string)

	// A producer (or its transform/pick) failed; the entry now holds err.
	ExecutionFailed(key string, err error)

	// An initial execution was skipped because the payload already carried
	// a value for key.
	HydrationReused(key string)

	// The generation store failed; the execution is treated as stale.
	GenError(key string, err error)

	// A stored payload frame was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "decode"}
	PayloadSelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ExecutionSuperseded(string)     {}
func (NopHooks) ExecutionFailed(string, error)  {}
func (NopHooks) HydrationReused(string)         {}
func (NopHooks) GenError(string, error)         {}
func (NopHooks) PayloadSelfHeal(string, string) {}
func (NopHooks) ProviderSetRejected(string)     {}
