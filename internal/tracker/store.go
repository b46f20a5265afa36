package tracker

import "sync"

// Store holds the serialized baseline for one session.
type Store interface {
	// Load returns the stored blob, or nil and no error when nothing has
	// been saved yet.
	Load() ([]byte, error)
	Save(data []byte) error
}

// MemoryStore is a Store kept in memory. It lives as long as its owner:
// a process for the refresh loop, a single request for the HTTP surface.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns a store optionally seeded with a previously saved
// blob. A nil or empty seed means no baseline.
func NewMemoryStore(seed []byte) *MemoryStore {
	s := &MemoryStore{}
	if len(seed) > 0 {
		s.data = append([]byte(nil), seed...)
	}
	return s
}

func (s *MemoryStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemoryStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

// Bytes returns the current blob (nil when nothing was saved).
func (s *MemoryStore) Bytes() []byte {
	b, _ := s.Load()
	return b
}
