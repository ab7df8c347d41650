package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ticket-engine/internal/status"
	"ticket-engine/models"
)

// MemoryStore is a map-backed TicketTypeStore/ReservationStore for
// development runs without a database and for tests.
type MemoryStore struct {
	mu           sync.RWMutex
	ticketTypes  map[string]*models.TicketType
	reservations map[string]*models.Reservation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ticketTypes:  make(map[string]*models.TicketType),
		reservations: make(map[string]*models.Reservation),
	}
}

func (s *MemoryStore) PutTicketType(tt *models.TicketType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tt
	s.ticketTypes[tt.ID] = &cp
}

func (s *MemoryStore) GetTicketType(_ context.Context, id string) (*models.TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tt, ok := s.ticketTypes[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, status.ErrTicketTypeNotFound)
	}
	cp := *tt
	return &cp, nil
}

func (s *MemoryStore) ListTicketTypes(_ context.Context, eventID string, includeHidden bool) ([]*models.TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TicketType
	for _, tt := range s.ticketTypes {
		if eventID != "" && tt.EventID != eventID {
			continue
		}
		if !tt.IsActive {
			continue
		}
		if tt.IsHidden && !includeHidden {
			continue
		}
		cp := *tt
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UnitPrice < out[j].UnitPrice })
	return out, nil
}

func (s *MemoryStore) UpdateCounters(_ context.Context, id string, sold, reserved int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tt, ok := s.ticketTypes[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, status.ErrTicketTypeNotFound)
	}
	tt.Sold = sold
	tt.Reserved = reserved
	return nil
}

func (s *MemoryStore) AddRevenue(_ context.Context, id string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tt, ok := s.ticketTypes[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, status.ErrTicketTypeNotFound)
	}
	tt.Revenue += amount
	return nil
}

func (s *MemoryStore) SaveReservation(_ context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.reservations[r.ID] = &cp
	return nil
}

func (s *MemoryStore) ListActiveReservations(_ context.Context) ([]*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Reservation
	for _, r := range s.reservations {
		if r.Status != models.ReservationActive {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}
