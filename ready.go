package asyncdata

import "context"

// OnReady runs fn once the client finished hydrating: right away when it
// already has, otherwise from the hydration-resolved hook. On the server it
// does nothing.
func (a *App) OnReady(fn func()) {
	if a.IsServer() || fn == nil {
		return
	}
	a.mu.Lock()
	if !a.hydrating {
		a.mu.Unlock()
		fn()
		return
	}
	// registered under a.mu so the hook cannot fire in between
	a.bus.HookOnce(HookHydrationResolved, func(context.Context, ...any) error {
		fn()
		return nil
	})
	a.mu.Unlock()
}

// RefreshData re-executes every live handle (keys empty) or only the handles
// whose key is listed, after the App is ready. It returns once every
// triggered refresh settled. On the server it is a no-op.
func (a *App) RefreshData(ctx context.Context, keys ...string) error {
	if a.IsServer() {
		return nil
	}
	ready := make(chan struct{})
	a.OnReady(func() { close(ready) })
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return a.bus.CallHookParallel(ctx, HookDataRefresh, keys)
}
