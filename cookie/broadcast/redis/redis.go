// Package redis is a cookie.Broadcaster over Redis pub/sub, for clients that
// run as separate processes (several tabs of a desktop shell, a test fleet).
package redis

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/asyncdata/cookie"
)

var ErrNilClient = errors.New("redis broadcaster: nil client")

type Config struct {
	Client goredis.UniversalClient
	Prefix string // prepended to every channel name; default "bc:"
}

type Broadcaster struct {
	rdb    goredis.UniversalClient
	prefix string
}

var _ cookie.Broadcaster = (*Broadcaster)(nil)

func New(cfg Config) (*Broadcaster, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bc:"
	}
	return &Broadcaster{rdb: cfg.Client, prefix: prefix}, nil
}

// envelope carries the sender so a channel can skip its own posts.
type envelope struct {
	From    string `msgpack:"f"`
	Value   string `msgpack:"v"`
	Deleted bool   `msgpack:"d,omitempty"`
}

func encode(from string, m cookie.Message) ([]byte, error) {
	return msgpack.Marshal(envelope{From: from, Value: m.Value, Deleted: m.Deleted})
}

func decode(b []byte) (string, cookie.Message, error) {
	var e envelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return "", cookie.Message{}, err
	}
	return e.From, cookie.Message{Value: e.Value, Deleted: e.Deleted}, nil
}

func (b *Broadcaster) Open(name string) (cookie.Channel, error) {
	topic := b.prefix + name
	ctx, cancel := context.WithCancel(context.Background())
	ps := b.rdb.Subscribe(ctx, topic)
	// wait for the subscription so posts right after Open are not missed
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, err
	}
	c := &channel{rdb: b.rdb, ps: ps, topic: topic, id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	go c.loop()
	return c, nil
}

type channel struct {
	rdb    goredis.UniversalClient
	ps     *goredis.PubSub
	topic  string
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	fn   func(cookie.Message)
	once sync.Once
}

func (c *channel) loop() {
	defer close(c.done)
	for msg := range c.ps.Channel() {
		from, m, err := decode([]byte(msg.Payload))
		if err != nil || from == c.id {
			continue
		}
		c.mu.Lock()
		fn := c.fn
		c.mu.Unlock()
		if fn != nil {
			fn(m)
		}
	}
}

func (c *channel) Post(ctx context.Context, m cookie.Message) error {
	b, err := encode(c.id, m)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.topic, b).Err()
}

func (c *channel) OnMessage(fn func(cookie.Message)) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

func (c *channel) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.ps.Close()
		<-c.done
	})
	return err
}
