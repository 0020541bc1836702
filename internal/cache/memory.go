package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultCapacity    = 10000
	defaultMaxMemoryMB = 50
	// perEntryOverhead approximates map/list bookkeeping per entry.
	perEntryOverhead = 64
)

// MemoryStore is a bounded in-process Store. Capacity is limited both by
// entry count and by estimated memory; overflowing either bound evicts the
// least-recently-used entries first. Recency updates on both reads and
// writes. Expired entries are treated as absent and purged lazily on access.
type MemoryStore struct {
	capacity   int
	maxBytes   int64
	defaultTTL time.Duration

	mu        sync.Mutex
	entries   map[string]*list.Element
	lru       *list.List // front = most recently used
	sizeBytes int64

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

type memoryEntry struct {
	key       string
	value     []float32
	expiresAt time.Time // zero means no expiry
	size      int64
}

// NewMemoryStore creates a bounded in-memory store. Non-positive capacity or
// maxMemoryMB fall back to the defaults (10k entries, 50 MB). defaultTTL of
// zero means entries do not expire unless Set passes an explicit ttl.
func NewMemoryStore(capacity, maxMemoryMB int, defaultTTL time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if maxMemoryMB <= 0 {
		maxMemoryMB = defaultMaxMemoryMB
	}
	return &MemoryStore{
		capacity:   capacity,
		maxBytes:   int64(maxMemoryMB) * 1024 * 1024,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		now:        time.Now,
	}
}

// Get returns the vector for key. Expired entries are removed and reported
// as misses.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if m.expired(entry) {
		m.removeLocked(elem)
		m.misses++
		return nil, false
	}
	m.lru.MoveToFront(elem)
	m.hits++

	// Copy so caller mutations cannot corrupt the cached value.
	out := make([]float32, len(entry.value))
	copy(out, entry.value)
	return out, true
}

// Set stores the vector under key, evicting LRU entries when either the
// entry-count or byte bound is exceeded. A ttl of zero uses the store's
// default TTL.
func (m *MemoryStore) Set(ctx context.Context, key string, value []float32, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	stored := make([]float32, len(value))
	copy(stored, value)
	size := entrySize(key, stored)

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		m.sizeBytes += size - entry.size
		entry.value = stored
		entry.expiresAt = expiresAt
		entry.size = size
		m.lru.MoveToFront(elem)
	} else {
		entry := &memoryEntry{key: key, value: stored, expiresAt: expiresAt, size: size}
		m.entries[key] = m.lru.PushFront(entry)
		m.sizeBytes += size
	}

	for (m.lru.Len() > m.capacity || m.sizeBytes > m.maxBytes) && m.lru.Len() > 1 {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		m.removeLocked(oldest)
		m.evictions++
	}
}

// Delete removes key and reports whether an entry was present.
func (m *MemoryStore) Delete(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return false
	}
	m.removeLocked(elem)
	return true
}

// Clear removes all entries and resets the counters.
func (m *MemoryStore) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*list.Element)
	m.lru.Init()
	m.sizeBytes = 0
	m.hits, m.misses, m.evictions = 0, 0, 0
}

// Stats returns a snapshot of the counters.
func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.hits + m.misses
	s := Stats{
		Hits:          m.hits,
		Misses:        m.misses,
		Evictions:     m.evictions,
		TotalRequests: total,
		Entries:       m.lru.Len(),
		SizeBytes:     m.sizeBytes,
	}
	if total > 0 {
		s.HitRate = float64(m.hits) / float64(total)
	}
	return s
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) expired(entry *memoryEntry) bool {
	return !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt)
}

func (m *MemoryStore) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	m.lru.Remove(elem)
	delete(m.entries, entry.key)
	m.sizeBytes -= entry.size
}

func entrySize(key string, value []float32) int64 {
	return int64(len(key)) + int64(len(value))*4 + perEntryOverhead
}
