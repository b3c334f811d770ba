package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/metrics"
)

const defaultRetention = 1000

// MemoryStore is a bounded in-memory Store. Reports are evicted in the order
// they were first stored.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]*list.Element
	order     *list.List
	retention int
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:      make(map[string]*list.Element),
		order:     list.New(),
		retention: defaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateReportsStored(0)
	return s
}

// Put implements Store.Put.
func (s *MemoryStore) Put(ctx context.Context, r Report) error {
	if r.SessionID == "" {
		return fmt.Errorf("put report: %w", ErrInvalidReport)
	}
	r.Turns = append([]model.CompletedTurn(nil), r.Turns...)

	s.mu.Lock()
	if el, ok := s.byID[r.SessionID]; ok {
		el.Value = r
	} else {
		s.byID[r.SessionID] = s.order.PushBack(r)
	}
	for s.order.Len() > s.retention {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.byID, oldest.Value.(Report).SessionID)
	}
	n := s.order.Len()
	s.mu.Unlock()

	metrics.UpdateReportsStored(n)
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.byID[sessionID]
	if !ok {
		return Report{}, ErrNotFound
	}
	r := el.Value.(Report)
	r.Turns = append([]model.CompletedTurn(nil), r.Turns...)
	return r, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
