package seatcache

import (
	"context"
	"maps"
	"sync"

	"github.com/lam4est/CinemaX/internal/domain"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.SeatMap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]domain.SeatMap),
	}
}

func (s *MemoryStore) Get(_ context.Context, showtimeID string) (domain.SeatMap, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seatMap, ok := s.entries[showtimeID]
	if !ok {
		return domain.SeatMap{}, false, nil
	}

	seatMap.States = maps.Clone(seatMap.States)

	return seatMap, true, nil
}

func (s *MemoryStore) Put(_ context.Context, seatMap domain.SeatMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seatMap.States = maps.Clone(seatMap.States)
	s.entries[seatMap.ShowtimeID] = seatMap

	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, showtimeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, showtimeID)

	return nil
}
