package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGenStore shares generations across replicas. The payload handoff
// store uses it so that invalidating a route on one replica makes every
// replica drop its parked payload for that route.
type RedisGenStore struct {
	rdb         redis.UniversalClient
	ns          string
	ttl         time.Duration // refreshed on Bump; 0 disables expiry
	closeClient bool
}

var _ GenStore = (*RedisGenStore)(nil)

type RedisConfig struct {
	Client      redis.UniversalClient
	Namespace   string
	TTL         time.Duration // expired keys read as generation 0
	CloseClient bool
}

func NewRedisGenStore(cfg RedisConfig) (*RedisGenStore, error) {
	if cfg.Client == nil {
		return nil, errors.New("genstore: nil redis client")
	}
	return &RedisGenStore{rdb: cfg.Client, ns: cfg.Namespace, ttl: cfg.TTL, closeClient: cfg.CloseClient}, nil
}

func (s *RedisGenStore) key(k string) string { return "gen:" + s.ns + ":" + k }

// Snapshot returns the current generation; missing keys are 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, k string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(k)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: parse %q: %w", k, err)
	}
	return u, nil
}

// Bump increments the generation; with a TTL, INCR and EXPIRE share one
// round trip.
func (s *RedisGenStore) Bump(ctx context.Context, k string) (uint64, error) {
	key := s.key(k)
	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, key).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

// Len is not tracked for a shared store.
func (s *RedisGenStore) Len() int { return 0 }

func (s *RedisGenStore) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
