package cookie

import (
	"context"
	"sync"
)

// Message is what a cell posts to the other tabs: the encoded value, or a
// deletion.
type Message struct {
	Value   string `msgpack:"v"`
	Deleted bool   `msgpack:"d,omitempty"`
}

// Channel is one named broadcast channel. A channel never receives its own
// posts.
type Channel interface {
	Post(ctx context.Context, m Message) error
	OnMessage(fn func(Message))
	Close() error
}

// Broadcaster opens named channels.
type Broadcaster interface {
	Open(name string) (Channel, error)
}

// Hub is an in-process Broadcaster. Delivery is synchronous and in post
// order.
type Hub struct {
	mu    sync.Mutex
	seq   uint64
	chans map[string]map[uint64]*hubChannel
}

var _ Broadcaster = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{chans: make(map[string]map[uint64]*hubChannel)}
}

func (h *Hub) Open(name string) (Channel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	c := &hubChannel{hub: h, name: name, id: h.seq}
	if h.chans[name] == nil {
		h.chans[name] = make(map[uint64]*hubChannel)
	}
	h.chans[name][c.id] = c
	return c, nil
}

func (h *Hub) peers(c *hubChannel) []*hubChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*hubChannel
	for id, p := range h.chans[c.name] {
		if id != c.id {
			out = append(out, p)
		}
	}
	return out
}

func (h *Hub) remove(c *hubChannel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.chans[c.name], c.id)
	if len(h.chans[c.name]) == 0 {
		delete(h.chans, c.name)
	}
}

type hubChannel struct {
	hub  *Hub
	name string
	id   uint64

	mu sync.Mutex
	fn func(Message)
}

func (c *hubChannel) Post(ctx context.Context, m Message) error {
	for _, p := range c.hub.peers(c) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.mu.Lock()
		fn := p.fn
		p.mu.Unlock()
		if fn != nil {
			fn(m)
		}
	}
	return nil
}

func (c *hubChannel) OnMessage(fn func(Message)) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

func (c *hubChannel) Close() error {
	c.hub.remove(c)
	return nil
}
