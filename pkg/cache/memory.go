package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/crypto"
)

// minPruneSize is the entry count at which Add first sweeps expired tokens.
const minPruneSize = 1024

// Ensure MemoryAllowList implements RefreshTokenStore
var _ core.RefreshTokenStore = (*MemoryAllowList)(nil)

// MemoryAllowList is an in-process refresh token allow-list. Entries are
// keyed by token hash and dropped once the token itself has expired.
// Contents do not survive a restart.
type MemoryAllowList struct {
	entries map[string]time.Time
	mu      sync.RWMutex
	maxSize int
	pruneAt int
	now     func() time.Time

	// counters
	adds      int64
	hits      int64
	misses    int64
	removes   int64
	evictions int64
}

type Option func(*MemoryAllowList)

// WithMaxSize caps the number of remembered tokens. When the list is full
// and no entry has expired, the live entry closest to expiry is dropped.
// Without this option the list is unbounded and only expired entries are
// swept.
func WithMaxSize(n int) Option {
	return func(m *MemoryAllowList) {
		if n > 0 {
			m.maxSize = n
		}
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryAllowList) {
		m.now = now
	}
}

func NewMemoryAllowList(opts ...Option) *MemoryAllowList {
	m := &MemoryAllowList{
		entries: make(map[string]time.Time),
		pruneAt: minPruneSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryAllowList) Add(_ context.Context, token string, expiresAt time.Time) error {
	key := crypto.HashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		switch {
		case m.maxSize > 0 && len(m.entries) >= m.maxSize:
			m.evictLocked()
		case len(m.entries) >= m.pruneAt:
			m.pruneExpiredLocked()
			m.pruneAt = 2 * len(m.entries)
			if m.pruneAt < minPruneSize {
				m.pruneAt = minPruneSize
			}
		}
	}

	m.entries[key] = expiresAt
	atomic.AddInt64(&m.adds, 1)
	return nil
}

func (m *MemoryAllowList) Contains(_ context.Context, token string) (bool, error) {
	key := crypto.HashToken(token)

	m.mu.RLock()
	expiresAt, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&m.misses, 1)
		return false, nil
	}

	if !m.now().Before(expiresAt) {
		atomic.AddInt64(&m.misses, 1)
		m.mu.Lock()
		if exp, ok := m.entries[key]; ok && exp.Equal(expiresAt) {
			delete(m.entries, key)
			atomic.AddInt64(&m.evictions, 1)
		}
		m.mu.Unlock()
		return false, nil
	}

	atomic.AddInt64(&m.hits, 1)
	return true, nil
}

func (m *MemoryAllowList) Remove(_ context.Context, token string) error {
	key := crypto.HashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, existed := m.entries[key]; existed {
		delete(m.entries, key)
		atomic.AddInt64(&m.removes, 1)
	}
	return nil
}

// pruneExpiredLocked drops every expired entry. Callers hold m.mu.
func (m *MemoryAllowList) pruneExpiredLocked() {
	now := m.now()
	for k, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, k)
			atomic.AddInt64(&m.evictions, 1)
		}
	}
}

// evictLocked drops expired entries, then the entry closest to expiry if the
// capped list is still full. Callers hold m.mu.
func (m *MemoryAllowList) evictLocked() {
	m.pruneExpiredLocked()
	if len(m.entries) < m.maxSize {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, exp := range m.entries {
		if oldestKey == "" || exp.Before(oldest) {
			oldestKey, oldest = k, exp
		}
	}
	delete(m.entries, oldestKey)
	atomic.AddInt64(&m.evictions, 1)
}

// Len returns the number of remembered tokens
func (m *MemoryAllowList) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns allow-list statistics
func (m *MemoryAllowList) Stats() core.AllowListStats {
	return core.AllowListStats{
		Adds:      atomic.LoadInt64(&m.adds),
		Hits:      atomic.LoadInt64(&m.hits),
		Misses:    atomic.LoadInt64(&m.misses),
		Removes:   atomic.LoadInt64(&m.removes),
		Evictions: atomic.LoadInt64(&m.evictions),
		Size:      m.Len(),
	}
}
