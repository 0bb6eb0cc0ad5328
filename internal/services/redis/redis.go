// Package redis keeps the revoked-token denylist in Redis so revocations are
// shared across instances and expire on their own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:jti:"

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Denylist struct {
	rdb *redis.Client
	now func() time.Time
}

// NewDenylist connects to Redis and verifies the connection with a ping.
func NewDenylist(ctx context.Context, cfg Config) (*Denylist, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Denylist{rdb: rdb, now: time.Now}, nil
}

// Revoke stores jti until the token would have expired anyway.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, keyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.rdb.Get(ctx, keyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking revoked token: %w", err)
	}
	return true, nil
}

func (d *Denylist) Health(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

func (d *Denylist) Close() error {
	return d.rdb.Close()
}
