package payloadstore

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/asyncdata"
)

// RenderFunc renders route and returns its payload document.
type RenderFunc func(ctx context.Context, route string) (asyncdata.Document, error)

// Loader serves a route's payload from the store and renders it on a miss.
// Concurrent misses for one route share a single render.
type Loader struct {
	store  *Store
	render RenderFunc
	group  singleflight.Group
}

func NewLoader(store *Store, render RenderFunc) *Loader {
	return &Loader{store: store, render: render}
}

// Load returns the payload for route and whether it came from the store.
func (l *Loader) Load(ctx context.Context, route string) (asyncdata.Document, bool, error) {
	if doc, ok, err := l.store.Get(ctx, route); err == nil && ok {
		return doc, true, nil
	}

	v, err, _ := l.group.Do(route, func() (any, error) {
		obs, err := l.store.SnapshotGen(ctx, route)
		if err != nil {
			return nil, err
		}
		doc, err := l.render(ctx, route)
		if err != nil {
			return nil, err
		}
		if err := l.store.PutWithGen(ctx, route, doc, obs); err != nil {
			l.store.log.Warn("payloadstore: park failed", asyncdata.Fields{"route": route, "err": err})
		}
		return doc, nil
	})
	if err != nil {
		return asyncdata.Document{}, false, fmt.Errorf("payloadstore: render %q: %w", route, err)
	}
	return v.(asyncdata.Document), false, nil
}
