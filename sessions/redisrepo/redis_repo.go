package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	"github.com/redis/go-redis/v9"
)

var (
	_ sessions.Repo   = (*RedisRepo)(nil)
	_ sessions.Locker = (*RedisRepo)(nil)
)

var lockPollInterval = 25 * time.Millisecond

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRepo keeps the client state in Redis so several processes (or tabs of a
// hosted front-end) share one session, and serializes refreshes with SET NX locks.
type RedisRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRepo namespaces every key with prefix (e.g., "postpilot:<profile>:").
func NewRedisRepo(client redis.UniversalClient, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "postpilot:"
	}
	return &RedisRepo{client: client, prefix: prefix}
}

// NewClient creates a Redis client from a URL and performs a health check.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[redisrepo NewClient] parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[redisrepo NewClient] ping: %w", err)
	}
	return client, nil
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[redisrepo Get] %w", err)
	}
	return value, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, r.key(key))
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func (r *RedisRepo) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := r.key("lock:" + name)
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("[redisrepo Lock] %w", err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), r.client, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrapf(apperrors.ErrLockTimeout, "[redisrepo Lock] %s: %v", name, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

func (r *RedisRepo) key(key string) string {
	return r.prefix + key
}
