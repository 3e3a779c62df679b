package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	text     string
	storedAt time.Time
}

// Memory is a process-local content cache with TTL expiry and a hard entry
// cap. When full, the oldest entry is evicted. Safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, url string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok {
		return "", false
	}
	if m.now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, url)
		return "", false
	}
	return e.text, true
}

func (m *Memory) Set(_ context.Context, url, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[url]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[url] = entry{text: text, storedAt: m.now()}
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, e := range m.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, first = key, e.storedAt, false
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
