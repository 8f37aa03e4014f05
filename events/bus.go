// Package events is a named-hook bus: register listeners for a name, register
// fire-once listeners, and call every listener of a name either serially or
// in parallel while awaiting all of them.
package events

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Handler is a hook listener. Returning an error stops a serial call and is
// reported by the parallel one.
type Handler func(ctx context.Context, args ...any) error

type listener struct {
	id uint64
	fn Handler
}

// Bus is safe for concurrent use. The zero value is not ready; use New.
type Bus struct {
	mu    sync.Mutex
	seq   uint64
	hooks map[string][]listener
}

func New() *Bus {
	return &Bus{hooks: make(map[string][]listener)}
}

// Hook registers fn under name and returns a function removing it.
func (b *Bus) Hook(name string, fn Handler) (unhook func()) {
	if fn == nil {
		return func() {}
	}
	id := b.add(name, func(id uint64) Handler { return fn })
	return b.unhookFunc(name, id)
}

// HookOnce registers fn to run at most once; it is removed before it runs.
func (b *Bus) HookOnce(name string, fn Handler) (unhook func()) {
	if fn == nil {
		return func() {}
	}
	var fired sync.Once
	id := b.add(name, func(id uint64) Handler {
		return func(ctx context.Context, args ...any) error {
			var err error
			fired.Do(func() {
				b.remove(name, id)
				err = fn(ctx, args...)
			})
			return err
		}
	})
	return b.unhookFunc(name, id)
}

func (b *Bus) add(name string, build func(id uint64) Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := b.seq
	b.hooks[name] = append(b.hooks[name], listener{id: id, fn: build(id)})
	return id
}

func (b *Bus) unhookFunc(name string, id uint64) func() {
	var once sync.Once
	return func() { once.Do(func() { b.remove(name, id) }) }
}

// CallHook runs the listeners of name one after another, in registration
// order, stopping at the first error.
func (b *Bus) CallHook(ctx context.Context, name string, args ...any) error {
	for _, l := range b.listeners(name) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.fn(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// CallHookParallel runs all listeners of name concurrently and waits for all
// of them. The first error is returned.
func (b *Bus) CallHookParallel(ctx context.Context, name string, args ...any) error {
	ls := b.listeners(name)
	if len(ls) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range ls {
		fn := l.fn
		g.Go(func() error { return fn(gctx, args...) })
	}
	return g.Wait()
}

// Len reports how many listeners are registered under name.
func (b *Bus) Len(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hooks[name])
}

func (b *Bus) listeners(name string) []listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.hooks[name]
	if len(ls) == 0 {
		return nil
	}
	out := make([]listener, len(ls))
	copy(out, ls)
	return out
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.hooks[name]
	for i, l := range ls {
		if l.id == id {
			b.hooks[name] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(b.hooks[name]) == 0 {
		delete(b.hooks, name)
	}
}
