package storage

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/ocrdown/internal/models"
)

// MemoryStore keeps results in process memory. With a positive capacity the
// least recently used result is evicted once capacity is exceeded; with zero
// capacity results live until the process exits.
type MemoryStore struct {
	capacity int
	items    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

// NewMemoryStore creates a store holding at most capacity results (0 = unbounded).
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryStore{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Put stores a copy of result, replacing any result with the same ID.
func (s *MemoryStore) Put(_ context.Context, result *models.Result) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("result id is required")
	}
	r := *result
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
		result.CreatedAt = r.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[r.ID]; ok {
		elem.Value = &r
		s.lru.MoveToFront(elem)
		return nil
	}
	s.items[r.ID] = s.lru.PushFront(&r)

	if s.capacity > 0 && s.lru.Len() > s.capacity {
		if oldest := s.lru.Back(); oldest != nil {
			s.lru.Remove(oldest)
			delete(s.items, oldest.Value.(*models.Result).ID)
		}
	}
	return nil
}

// Get returns a copy of the result stored under id.
func (s *MemoryStore) Get(_ context.Context, id string) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lru.MoveToFront(elem)
	r := *elem.Value.(*models.Result)
	return &r, nil
}

// Count returns the number of stored results.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.lru.Len()), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
