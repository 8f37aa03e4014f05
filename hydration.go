package asyncdata

import "sync"

// IsHydrating reports whether the client is still taking over
// server-rendered state. It starts true on a client restored from a server
// render and flips to false exactly once.
func (a *App) IsHydrating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hydrating
}

// HydrationResolved is closed once hydration finished (immediately when the
// App never hydrated).
func (a *App) HydrationResolved() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolved
}

// DeferHydration keeps hydration open until the returned release is called.
// Hydration completes when the last outstanding release runs; releasing
// twice is a no-op. Outside of hydration the release does nothing.
func (a *App) DeferHydration() (release func()) {
	a.mu.Lock()
	if !a.hydrating {
		a.mu.Unlock()
		return func() {}
	}
	a.holders++
	a.mu.Unlock()

	var once sync.Once
	return func() { once.Do(a.releaseHydration) }
}

func (a *App) releaseHydration() {
	a.mu.Lock()
	a.holders--
	if a.holders < 0 {
		a.mu.Unlock()
		panic("asyncdata: hydration released more often than deferred")
	}
	if a.holders > 0 {
		a.mu.Unlock()
		return
	}
	a.hydrating = false
	close(a.resolved)
	a.mu.Unlock()

	a.log.Debug("asyncdata: hydration resolved", Fields{"app": a.id})
	if err := a.bus.CallHook(a.ctx, HookHydrationResolved); err != nil {
		a.log.Warn("asyncdata: hydration listener failed", Fields{"app": a.id, "err": err})
	}
}
