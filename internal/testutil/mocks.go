package testutil

import (
	"context"
	"sort"
	"sync"
	"time"
)

type mockRow struct {
	data      []byte
	expiresAt time.Time
}

// MockStore is an in-memory disk tier with per-method fault injection.
// Entries set with a zero TTL never expire.
type MockStore struct {
	mu    sync.Mutex
	rows  map[string]mockRow
	now   func() time.Time
	calls map[string]int

	// ErrorOnMethod makes the named method (Get, Set, Delete, Keys, Len,
	// Bytes, Clear, Cull, Close) return the given error.
	ErrorOnMethod map[string]error
	// CorruptKeys makes Get return undecodable bytes for the listed keys.
	CorruptKeys map[string]bool
}

// NewMockStore creates an empty mock store using time.Now
func NewMockStore() *MockStore {
	return &MockStore{
		rows:          make(map[string]mockRow),
		now:           time.Now,
		calls:         make(map[string]int),
		ErrorOnMethod: make(map[string]error),
		CorruptKeys:   make(map[string]bool),
	}
}

// SetClock replaces the store's time source
func (m *MockStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Calls returns how many times method was invoked
func (m *MockStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Has reports whether key is stored, expired or not
func (m *MockStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[key]
	return ok
}

// enter records a call and returns the injected error, if any; mu must be held
func (m *MockStore) enter(method string) error {
	m.calls[method]++
	return m.ErrorOnMethod[method]
}

func (m *MockStore) live(row mockRow) bool {
	return row.expiresAt.IsZero() || !m.now().After(row.expiresAt)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Get"); err != nil {
		return nil, false, err
	}

	row, ok := m.rows[key]
	if !ok {
		return nil, false, nil
	}
	if !m.live(row) {
		delete(m.rows, key)
		return nil, false, nil
	}
	if m.CorruptKeys[key] {
		return []byte{0xff, 0x00, 0x13}, true, nil
	}
	return append([]byte(nil), row.data...), true, nil
}

func (m *MockStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Set"); err != nil {
		return err
	}

	row := mockRow{data: append([]byte(nil), data...)}
	if ttl > 0 {
		row.expiresAt = m.now().Add(ttl)
	}
	m.rows[key] = row
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Delete"); err != nil {
		return false, err
	}

	row, ok := m.rows[key]
	if !ok {
		return false, nil
	}
	delete(m.rows, key)
	return m.live(row), nil
}

func (m *MockStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Keys"); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(m.rows))
	for key := range m.rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockStore) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Len"); err != nil {
		return 0, err
	}

	count := 0
	for _, row := range m.rows {
		if m.live(row) {
			count++
		}
	}
	return count, nil
}

func (m *MockStore) Bytes(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Bytes"); err != nil {
		return 0, err
	}

	var total int64
	for _, row := range m.rows {
		total += int64(len(row.data))
	}
	return total, nil
}

func (m *MockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Clear"); err != nil {
		return err
	}
	m.rows = make(map[string]mockRow)
	return nil
}

// Cull removes expired rows; the mock has no size budget
func (m *MockStore) Cull(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter("Cull"); err != nil {
		return 0, err
	}

	removed := 0
	for key, row := range m.rows {
		if !m.live(row) {
			delete(m.rows, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter("Close")
}
