package asyncdata

import "time"

const (
	// fetch keys derived from an explicit key equal to the call-site key
	fetchKeyPrefix = "$f"

	defaultFetchTimeout = 30 * time.Second
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
