package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgredis "github.com/novashop/novashop-backend/pkg/redis"
)

// Store is the response-cache capability owned by the catalog component.
// The order lifecycle never touches it; staleness is bounded by TTL plus
// explicit invalidation on catalog writes.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
}

type redisStore struct {
	client *pkgredis.Client
}

// NewRedisStore builds a Store backed by the shared redis client.
func NewRedisStore(client *pkgredis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.client.CacheKey(key))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.client.CacheKey(key), value, ttl)
}

func (s *redisStore) Invalidate(ctx context.Context, prefix string) error {
	return s.client.DeleteByPrefix(ctx, s.client.CacheKey(prefix))
}
