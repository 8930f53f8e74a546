package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "jwt:revoked:"

// RedisRepo keeps the ids of access tokens that were logged out.
type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * Revoke marks a token id as revoked until the token itself would expire.
// Returns false if the id was already revoked.
func (r *RedisRepo) Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.Revoke"

	if ttl <= 0 {
		return false, nil
	}

	ok, err := r.client.SetNX(ctx, revokedPrefix+jti, "revoked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// * IsRevoked reports whether Revoke was called for the token id.
func (r *RedisRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "storage.redis.IsRevoked"

	err := r.client.Get(ctx, revokedPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// * Close closes the connection pool.
func (r *RedisRepo) Close() {
	_ = r.client.Close()
}
