package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// memoryEntry is a single L1 record
type memoryEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *memoryEntry[V]) live(now time.Time) bool {
	return e.expiresAt.IsZero() || !now.After(e.expiresAt)
}

// MemoryTier is the bounded in-memory tier. Entries are kept in insertion
// order; when the tier is full the oldest insertion is evicted. Reads do not
// change that order. Overwriting a key never evicts and moves it to the
// newest position.
type MemoryTier[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is the oldest insertion
	now      func() time.Time
}

// NewMemoryTier creates a tier holding at most capacity entries
func NewMemoryTier[V any](capacity int, now func() time.Time) *MemoryTier[V] {
	if now == nil {
		now = time.Now
	}
	return &MemoryTier[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      now,
	}
}

// Put inserts or overwrites key. It reports whether an entry had to be
// evicted to make room.
func (m *MemoryTier[V]) Put(key string, value V, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := expiry(m.now(), ttl)

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		m.order.MoveToBack(elem)
		return false
	}

	evicted := false
	if len(m.items) >= m.capacity {
		if oldest := m.order.Front(); oldest != nil {
			m.removeElement(oldest)
			evicted = true
		}
	}

	m.items[key] = m.order.PushBack(&memoryEntry[V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
	return evicted
}

// Get returns the value for key if it is present and not expired
func (m *MemoryTier[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry[V])
		if entry.live(m.now()) {
			return entry.value, true
		}
	}

	var zero V
	return zero, false
}

// Delete removes key and reports whether an entry was removed. An expired
// entry that has not been swept yet still counts.
func (m *MemoryTier[V]) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return false
	}
	m.removeElement(elem)
	return true
}

// Sweep drops every expired entry and returns how many were removed
func (m *MemoryTier[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for elem := m.order.Front(); elem != nil; {
		next := elem.Next()
		if !elem.Value.(*memoryEntry[V]).live(now) {
			m.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// KeysWithPrefix lists every stored key starting with prefix
func (m *MemoryTier[V]) KeysWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of stored entries, expired or not
func (m *MemoryTier[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear removes every entry
func (m *MemoryTier[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element, m.capacity)
	m.order.Init()
}

// removeElement must be called with mu held
func (m *MemoryTier[V]) removeElement(elem *list.Element) {
	m.order.Remove(elem)
	delete(m.items, elem.Value.(*memoryEntry[V]).key)
}

// expiry converts a TTL into an absolute deadline; the zero time means never
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= NoExpiration {
		return time.Time{}
	}
	return now.Add(ttl)
}
