package asyncdata

import (
	"context"
	"errors"
)

var errNotServer = errors.New("asyncdata: Render needs a server App")

// Render drives one server render. app:created listeners run first (this is
// where prefetches registered outside a component are awaited), then fn,
// then app:rendered. When either step fails app:error fires with the error
// and the error is returned. The returned document is the payload to embed.
func (a *App) Render(ctx context.Context, fn func(ctx context.Context) error) (Document, error) {
	if !a.IsServer() {
		return Document{}, errNotServer
	}
	if err := a.bus.CallHook(ctx, HookAppCreated); err != nil {
		return Document{}, a.renderFailed(ctx, err)
	}
	if fn != nil {
		if err := fn(ctx); err != nil {
			return Document{}, a.renderFailed(ctx, err)
		}
	}
	if err := a.bus.CallHook(ctx, HookAppRendered); err != nil {
		return Document{}, a.renderFailed(ctx, err)
	}
	return a.Payload(), nil
}

func (a *App) renderFailed(ctx context.Context, err error) error {
	a.log.Error("asyncdata: render failed", Fields{"app": a.id, "err": err})
	if herr := a.bus.CallHook(ctx, HookAppError, err); herr != nil {
		return errors.Join(err, herr)
	}
	return err
}
