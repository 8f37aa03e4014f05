// Package ristretto keeps payload frames in a ristretto cache, admitted by
// size.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/asyncdata/provider"
)

type Provider struct {
	c    *rc.Cache
	sync bool
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64 // default 100k
	MaxCost     int64 // bytes; default 64 MiB
	BufferItems int64 // default 64
	Metrics     bool

	// Sync waits for each Set to be applied. Without it a payload parked
	// right before the client asks for it may not be visible yet.
	Sync bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters < 0 || cfg.MaxCost < 0 || cfg.BufferItems < 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = 100_000
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = 64 << 20
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, sync: cfg.Sync}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set charges the frame size when cost <= 0.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if cost <= 0 {
		cost = int64(len(value))
	}
	ok := p.c.SetWithTTL(key, value, cost, ttl)
	if ok && p.sync {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
