// Package asyncdata is a keyed, hydration-aware cache for asynchronously
// produced data. A server render produces values into a payload document;
// the client restores that document and adopts the values instead of
// producing them again, then keeps them fresh through explicit refreshes,
// watched sources and app-wide refresh broadcasts.
//
// Components:
//   - App: one environment instance (server request or client session). It
//     owns the entries, in-flight executions, the payload and hydration state.
//   - Entry: the shared reactive state of one key (data, pending, error, status).
//   - UseAsyncData / UseFetch: call-site bindings returning an *AsyncData[T].
//   - GenStore: per-key generation counters used as execution tokens.
//
// Token pattern (store calls run outside the App lock, in request order per
// key; the in-flight record decides local ownership):
//
//	tok := gens.Bump(key)             // start: supersedes any running execution
//	v, err := produce(ctx)
//	if gens.Snapshot(key) != tok {    // settle: bumped elsewhere, drop the result
//		return
//	}
//
// Keys:
//
//	<key>            - async-data keys as given
//	$f<key>          - fetch keys whose explicit key equals the call-site key
//	<hash>           - fetch keys derived from call-site key, base URL, target, query
package asyncdata
