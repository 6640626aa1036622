// Package redis keeps the refresh-token allow-list in Redis so that several
// API instances share it.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/crypto"
)

const DefaultPrefix = "storefront:refresh:"

type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// AllowList stores one key per refresh token hash. Redis expires the key
// together with the token.
type AllowList struct {
	client *redis.Client
	prefix string
}

var _ core.RefreshTokenStore = (*AllowList)(nil)

// Connect dials Redis and pings it.
func Connect(ctx context.Context, cfg Config) (*AllowList, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, cfg.Prefix), nil
}

func New(client *redis.Client, prefix string) *AllowList {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AllowList{client: client, prefix: prefix}
}

func (l *AllowList) key(token string) string {
	return l.prefix + crypto.HashToken(token)
}

// Add is a no-op for a token that has already expired.
func (l *AllowList) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, l.key(token), expiresAt.Unix(), ttl).Err()
}

func (l *AllowList) Contains(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *AllowList) Remove(ctx context.Context, token string) error {
	return l.client.Del(ctx, l.key(token)).Err()
}

func (l *AllowList) Close() error {
	return l.client.Close()
}
