package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/utils"
)

// MemoryLedger keeps the counters in process memory behind one mutex
// per ticket type. The lock is held only for the counter
// read-check-write; store reads and write-behind updates happen outside
// it. Successful TryReserve calls for one ticket type are totally
// ordered by its mutex.
type MemoryLedger struct {
	mu      sync.Mutex // guards entries
	entries map[string]*ledgerEntry
	store   TicketTypeStore
	breaker *utils.CircuitBreaker
}

type ledgerEntry struct {
	mu       sync.Mutex
	capacity int
	sold     int
	reserved int
	loaded   bool
}

func NewMemoryLedger(store TicketTypeStore) *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string]*ledgerEntry),
		store:   store,
		breaker: utils.NewCircuitBreaker("ledger-store-sync"),
	}
}

func (l *MemoryLedger) entry(id string) *ledgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		e = &ledgerEntry{}
		l.entries[id] = e
	}
	return e
}

// ensure returns the entry with counters seeded, reading the store on
// first touch. The store read happens with no lock held.
func (l *MemoryLedger) ensure(ctx context.Context, id string) (*ledgerEntry, error) {
	e := l.entry(id)

	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if loaded {
		return e, nil
	}

	if l.store == nil {
		return nil, fmt.Errorf("ledger: %q: %w", id, status.ErrTicketTypeNotFound)
	}

	tt, err := l.store.GetTicketType(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.loaded {
		e.capacity = tt.Capacity
		e.sold = tt.Sold
		e.reserved = tt.Reserved
		e.loaded = true
	}
	e.mu.Unlock()

	return e, nil
}

func (l *MemoryLedger) Load(_ context.Context, tt *models.TicketType) error {
	e := l.entry(tt.ID)

	e.mu.Lock()
	e.capacity = tt.Capacity
	e.sold = tt.Sold
	e.reserved = tt.Reserved
	e.loaded = true
	e.mu.Unlock()

	return nil
}

func (l *MemoryLedger) TryReserve(ctx context.Context, ticketTypeID string, quantity int) (bool, int, error) {
	if quantity <= 0 {
		return false, 0, status.ErrInvalidQuantity
	}

	e, err := l.ensure(ctx, ticketTypeID)
	if err != nil {
		return false, 0, err
	}

	e.mu.Lock()
	available := e.capacity - e.sold - e.reserved
	if available < quantity {
		e.mu.Unlock()
		return false, available, nil
	}
	e.reserved += quantity
	sold, reserved := e.sold, e.reserved
	e.mu.Unlock()

	l.syncStore(ctx, ticketTypeID, sold, reserved)
	return true, available - quantity, nil
}

func (l *MemoryLedger) Commit(ctx context.Context, ticketTypeID string, quantity int) error {
	e, err := l.ensure(ctx, ticketTypeID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.reserved < quantity {
		reserved := e.reserved
		e.mu.Unlock()
		return fmt.Errorf("ledger: commit %d of %d reserved on %q: %w",
			quantity, reserved, ticketTypeID, status.ErrConsistency)
	}
	e.reserved -= quantity
	e.sold += quantity
	sold, reserved := e.sold, e.reserved
	e.mu.Unlock()

	l.syncStore(ctx, ticketTypeID, sold, reserved)
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, ticketTypeID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	e, err := l.ensure(ctx, ticketTypeID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.reserved -= quantity
	if e.reserved < 0 {
		// Floored: a second release of the same hold must not
		// credit capacity twice.
		e.reserved = 0
	}
	sold, reserved := e.sold, e.reserved
	e.mu.Unlock()

	l.syncStore(ctx, ticketTypeID, sold, reserved)
	return nil
}

func (l *MemoryLedger) Snapshot(ctx context.Context, ticketTypeID string) (LedgerSnapshot, error) {
	e, err := l.ensure(ctx, ticketTypeID)
	if err != nil {
		return LedgerSnapshot{}, err
	}

	e.mu.Lock()
	snap := LedgerSnapshot{Capacity: e.capacity, Sold: e.sold, Reserved: e.reserved}
	e.mu.Unlock()

	return snap, nil
}

// syncStore writes the counters behind, outside any ledger lock. A
// failed write leaves the in-process ledger authoritative, and the
// breaker keeps a dead store from slowing every counter movement.
func (l *MemoryLedger) syncStore(ctx context.Context, id string, sold, reserved int) {
	if l.store == nil {
		return
	}
	err := l.breaker.Do(func() error {
		return l.store.UpdateCounters(ctx, id, sold, reserved)
	})
	if err != nil {
		log.Printf("ledger: persisting counters for %s failed: %v", id, err)
	}
}
