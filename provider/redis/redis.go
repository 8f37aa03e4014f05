// Package redis parks payload frames in Redis so any replica can answer the
// client's payload request, not only the one that rendered the page.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/asyncdata/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	maxTTL      time.Duration
	closeClient bool
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	Prefix      string        // prepended to every key; shared Redis instances
	MaxTTL      time.Duration // upper bound for frame TTLs; 0 = unbounded
	CloseClient bool          // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, prefix: cfg.Prefix, maxTTL: cfg.MaxTTL, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.clampTTL(&ttl)
	if err := p.rdb.Set(ctx, p.prefix+key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// clampTTL maps non-positive TTLs to "no expiry" (or MaxTTL when set) and
// caps the rest at MaxTTL.
func (p *Redis) clampTTL(ttl *time.Duration) {
	if *ttl <= 0 {
		*ttl = p.maxTTL
		return
	}
	if p.maxTTL > 0 && *ttl > p.maxTTL {
		*ttl = p.maxTTL
	}
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.prefix+key).Err()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
