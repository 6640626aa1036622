package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Requirement: only tokens that were added and have not been removed are honored
func TestMemoryAllowList_AddContainsRemove(t *testing.T) {
	// Arrange
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryAllowList(WithClock(clock.Now))
	exp := clock.now.Add(time.Hour)

	// Act
	_ = m.Add(ctx, "token-a", exp)

	// Assert
	if ok, _ := m.Contains(ctx, "token-a"); !ok {
		t.Error("Contains(token-a) = false after Add")
	}
	if ok, _ := m.Contains(ctx, "token-b"); ok {
		t.Error("Contains(token-b) = true for a token never added")
	}

	_ = m.Remove(ctx, "token-a")
	if ok, _ := m.Contains(ctx, "token-a"); ok {
		t.Error("Contains(token-a) = true after Remove")
	}

	stats := m.Stats()
	if stats.Adds != 1 || stats.Hits != 1 || stats.Misses != 2 || stats.Removes != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

// Requirement: a remembered token stays redeemable any number of times until it expires
func TestMemoryAllowList_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryAllowList(WithClock(clock.Now))
	_ = m.Add(ctx, "token", clock.now.Add(time.Minute))

	for i := 0; i < 3; i++ {
		if ok, _ := m.Contains(ctx, "token"); !ok {
			t.Fatalf("Contains() = false on check %d before expiry", i)
		}
	}

	clock.Advance(time.Minute)

	if ok, _ := m.Contains(ctx, "token"); ok {
		t.Error("Contains() = true at expiry")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, expired entry should be dropped", m.Len())
	}
}

// Requirement: without a size cap a live refresh token is never dropped by later logins
func TestMemoryAllowList_KeepsLiveTokensByDefault(t *testing.T) {
	// Arrange
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryAllowList(WithClock(clock.Now))
	_ = m.Add(ctx, "first", clock.now.Add(23*time.Hour))

	// Act
	for i := 0; i < 3*minPruneSize; i++ {
		_ = m.Add(ctx, fmt.Sprintf("login-%d", i), clock.now.Add(24*time.Hour))
	}

	// Assert
	if ok, _ := m.Contains(ctx, "first"); !ok {
		t.Error("Contains(first) = false, live token was dropped")
	}
	if m.Len() != 3*minPruneSize+1 {
		t.Errorf("Len() = %d, want %d", m.Len(), 3*minPruneSize+1)
	}
	if m.Stats().Evictions != 0 {
		t.Errorf("Evictions = %d, want 0", m.Stats().Evictions)
	}
}

// Requirement: expired entries are swept as the list grows
func TestMemoryAllowList_SweepsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryAllowList(WithClock(clock.Now))
	for i := 0; i < minPruneSize; i++ {
		_ = m.Add(ctx, fmt.Sprintf("old-%d", i), clock.now.Add(time.Minute))
	}
	clock.Advance(time.Hour)

	_ = m.Add(ctx, "fresh", clock.now.Add(time.Hour))

	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after sweeping expired entries", m.Len())
	}
	if ok, _ := m.Contains(ctx, "fresh"); !ok {
		t.Error("Contains(fresh) = false")
	}
}

func TestMemoryAllowList_EvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryAllowList(WithClock(clock.Now), WithMaxSize(2))

	_ = m.Add(ctx, "soon", clock.now.Add(time.Minute))
	_ = m.Add(ctx, "later", clock.now.Add(time.Hour))
	_ = m.Add(ctx, "newest", clock.now.Add(2*time.Hour))

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if ok, _ := m.Contains(ctx, "soon"); ok {
		t.Error("entry closest to expiry should have been evicted")
	}
	if ok, _ := m.Contains(ctx, "newest"); !ok {
		t.Error("newest entry missing")
	}
	if m.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", m.Stats().Evictions)
	}
}

func TestMemoryAllowList_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAllowList()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("token-%d", i)
			_ = m.Add(ctx, tok, exp)
			if ok, _ := m.Contains(ctx, tok); !ok {
				t.Errorf("Contains(%s) = false", tok)
			}
			if i%2 == 0 {
				_ = m.Remove(ctx, tok)
			}
		}(i)
	}
	wg.Wait()

	if m.Len() != 25 {
		t.Errorf("Len() = %d, want 25", m.Len())
	}
}
