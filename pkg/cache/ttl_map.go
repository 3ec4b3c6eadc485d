package cache

import (
	"sync"
	"time"
)

// TTLEntry represents an entry in TTLMap
type TTLEntry struct {
	Value     interface{}
	ExpiresAt time.Time
}

// TTLMap is a thread-safe map with an expiry for each entry
type TTLMap struct {
	Data map[string]*TTLEntry
	Mu   sync.RWMutex
	now  func() time.Time
}

func NewTTLMap() *TTLMap {
	return &TTLMap{
		Data: make(map[string]*TTLEntry),
		now:  time.Now,
	}
}

func (m *TTLMap) Get(key string) (interface{}, bool) {
	m.Mu.RLock()
	entry, exists := m.Data[key]
	if !exists {
		m.Mu.RUnlock()
		return nil, false
	}
	expired := !m.now().Before(entry.ExpiresAt)
	value := entry.Value
	m.Mu.RUnlock()

	if expired {
		m.Mu.Lock()
		if current, ok := m.Data[key]; ok && !m.now().Before(current.ExpiresAt) {
			delete(m.Data, key)
		}
		m.Mu.Unlock()
		return nil, false
	}
	return value, true
}

func (m *TTLMap) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Data[key] = &TTLEntry{
		Value:     value,
		ExpiresAt: m.now().Add(ttl),
	}
}

// Purge drops every expired entry and returns how many were removed.
func (m *TTLMap) Purge() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	now := m.now()
	removed := 0
	for k, e := range m.Data {
		if !now.Before(e.ExpiresAt) {
			delete(m.Data, k)
			removed++
		}
	}
	return removed
}

func (m *TTLMap) Len() int {
	m.Mu.RLock()
	defer m.Mu.RUnlock()
	return len(m.Data)
}
