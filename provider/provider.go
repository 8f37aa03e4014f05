// Package provider defines the byte store behind the payload handoff store.
//
// A rendered page's payload document is encoded, framed and parked in a
// provider for a short TTL so the client can fetch it separately from the
// markup (the "_payload" request). Implementations MUST be byte-for-byte
// transparent: Get returns exactly the []byte previously passed to Set.
//
// The keyspace "payload:<ns>:" is owned by payloadstore. Foreign writes under
// it fail frame validation and are deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
