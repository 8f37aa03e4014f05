// Package genstore holds the per-key generation counters that act as
// execution tokens for the async-data cache.
//
// An execution observes the generation it was started with. Starting a newer
// execution or clearing the key bumps the generation, and every completion
// compares its observed generation with the current one before touching
// shared state:
//
//	obs, _ := gens.Bump(ctx, key)   // start: this execution owns obs
//	v, err := produce()
//	if cur, _ := gens.Snapshot(ctx, key); cur != obs {
//		return // superseded or cleared: drop the result
//	}
package genstore

import "context"

// GenStore abstracts where generations live.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Len reports how many keys have a generation.
	Len() int
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
