package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/lborres/storefront/pkg/crypto"
)

func newAllowList(t *testing.T) (*AllowList, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	l, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

// Requirement: Tokens are remembered until removed
func TestAllowListLifecycle(t *testing.T) {
	// Arrange
	ctx := context.Background()
	l, _ := newAllowList(t)

	// Act
	if err := l.Add(ctx, "refresh-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Assert
	ok, err := l.Contains(ctx, "refresh-token")
	if err != nil || !ok {
		t.Fatalf("Contains() = %v, %v, want true", ok, err)
	}
	ok, _ = l.Contains(ctx, "other-token")
	if ok {
		t.Errorf("Contains(unknown) = true, want false")
	}

	if err := l.Remove(ctx, "refresh-token"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	ok, _ = l.Contains(ctx, "refresh-token")
	if ok {
		t.Errorf("Contains() after Remove = true, want false")
	}
}

// Requirement: Keys expire with the token and never hold the raw token
func TestAllowListExpiryAndHashing(t *testing.T) {
	// Arrange
	ctx := context.Background()
	l, mr := newAllowList(t)

	// Act
	if err := l.Add(ctx, "secret-refresh", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Assert
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != DefaultPrefix+crypto.HashToken("secret-refresh") {
		t.Fatalf("keys = %v, want one hashed key", keys)
	}
	if strings.Contains(keys[0], "secret-refresh") {
		t.Errorf("key %q contains the raw token", keys[0])
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}

	mr.FastForward(2 * time.Minute)
	ok, err := l.Contains(ctx, "secret-refresh")
	if err != nil || ok {
		t.Errorf("Contains() after expiry = %v, %v, want false", ok, err)
	}
}

// Requirement: Adding an already expired token stores nothing
func TestAllowListAddExpired(t *testing.T) {
	// Arrange
	ctx := context.Background()
	l, mr := newAllowList(t)

	// Act
	err := l.Add(ctx, "stale", time.Now().Add(-time.Second))

	// Assert
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

// Requirement: Connect fails fast without an address
func TestConnectRequiresAddr(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}); err == nil {
		t.Fatalf("Connect() error = nil, want error")
	}
}
