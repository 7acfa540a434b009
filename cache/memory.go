// Package cache provides caching implementations for Aegis permission decisions.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/aegis"
)

// Compile-time interface check.
var _ aegis.Cache = (*Memory)(nil)

// Memory is an in-memory decision cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	allowed   bool
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached decision.
func (m *Memory) Get(_ context.Context, userID, resource, action string) (bool, bool) {
	key := cacheKey(userID, resource, action)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, false
	}
	return e.allowed, true
}

// Set stores a decision in the cache.
func (m *Memory) Set(_ context.Context, userID, resource, action string, allowed bool) {
	key := cacheKey(userID, resource, action)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			// Evict oldest entry.
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		allowed:   allowed,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateUser removes all cached decisions for a user.
func (m *Memory) InvalidateUser(_ context.Context, userID string) {
	prefix := userID + ":"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
}

// InvalidateAll removes every cached decision.
func (m *Memory) InvalidateAll(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
}

func cacheKey(userID, resource, action string) string {
	return fmt.Sprintf("%s:%s:%s", userID, resource, action)
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
