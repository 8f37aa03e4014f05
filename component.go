package asyncdata

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Component is the lifecycle surface a call site can be bound to.
// Implementations are used as map keys and must be comparable (pointers).
type Component interface {
	OnBeforeMount(fn func())
	OnUnmounted(fn func())
	OnServerPrefetch(fn func(ctx context.Context) error)
}

// Instance is a minimal Component for hosts without their own tree.
type Instance struct {
	mu          sync.Mutex
	beforeMount []func()
	unmounted   []func()
	prefetch    []func(context.Context) error
	mounted     bool
	gone        bool
}

var _ Component = (*Instance)(nil)

func NewInstance() *Instance { return &Instance{} }

func (c *Instance) OnBeforeMount(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		c.beforeMount = append(c.beforeMount, fn)
	}
}

func (c *Instance) OnUnmounted(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gone {
		c.unmounted = append(c.unmounted, fn)
	}
}

func (c *Instance) OnServerPrefetch(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefetch = append(c.prefetch, fn)
}

// Mount runs the before-mount callbacks in registration order. Later calls
// are no-ops.
func (c *Instance) Mount() {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	fns := c.beforeMount
	c.beforeMount = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Unmount runs the unmount callbacks once.
func (c *Instance) Unmount() {
	c.mu.Lock()
	if c.gone {
		c.mu.Unlock()
		return
	}
	c.gone = true
	fns := c.unmounted
	c.unmounted = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Instance) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted && !c.gone
}

// ServerPrefetch awaits every registered prefetch concurrently.
func (c *Instance) ServerPrefetch(ctx context.Context) error {
	c.mu.Lock()
	fns := c.prefetch
	c.prefetch = nil
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}

// deferToMount batches fn with every other call site deferred on c; the
// batch runs in registration order right before c mounts and is dropped if
// c unmounts first.
func (a *App) deferToMount(c Component, fn func()) {
	a.mu.Lock()
	q, ok := a.mountQueues[c]
	if !ok {
		q = &mountQueue{}
		a.mountQueues[c] = q
	}
	q.fns = append(q.fns, fn)
	a.mu.Unlock()
	if ok {
		return
	}

	c.OnBeforeMount(func() {
		a.mu.Lock()
		fns := q.fns
		q.fns = nil
		delete(a.mountQueues, c)
		a.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
	c.OnUnmounted(func() {
		a.mu.Lock()
		q.fns = nil
		if a.mountQueues[c] == q {
			delete(a.mountQueues, c)
		}
		a.mu.Unlock()
	})
}
