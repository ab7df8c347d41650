package services

import (
	"context"
	"fmt"

	"ticket-engine/config"
	"ticket-engine/models"

	"github.com/redis/go-redis/v9"
)

// LedgerSnapshot is a point-in-time read of one ticket type's counters.
type LedgerSnapshot struct {
	Capacity int `json:"capacity"`
	Sold     int `json:"sold"`
	Reserved int `json:"reserved"`
}

func (s LedgerSnapshot) Available() int {
	return s.Capacity - s.Sold - s.Reserved
}

// InventoryLedger owns the authoritative capacity counters per ticket
// type and enforces sold + reserved <= capacity under concurrent
// access. Each operation is atomic with respect to the others for the
// same ticket type; nothing blocking runs inside the critical section.
type InventoryLedger interface {
	// Load seeds the counters for a ticket type, replacing whatever the
	// ledger currently holds for it.
	Load(ctx context.Context, tt *models.TicketType) error

	// TryReserve atomically moves quantity units from available to
	// reserved. ok=false with the current available count is the
	// sold-out outcome, not an error.
	TryReserve(ctx context.Context, ticketTypeID string, quantity int) (ok bool, availableAfter int, err error)

	// Commit moves quantity units from reserved to sold. Returns
	// status.ErrConsistency when reserved < quantity.
	Commit(ctx context.Context, ticketTypeID string, quantity int) error

	// Release returns quantity units from reserved to available,
	// floored at zero. Double release is a no-op at this level.
	Release(ctx context.Context, ticketTypeID string, quantity int) error

	Snapshot(ctx context.Context, ticketTypeID string) (LedgerSnapshot, error)
}

// NewLedger selects the ledger backend from configuration, the same way
// the payment bank adapter used to be chosen.
func NewLedger(cfg *config.Config, redisClient *redis.Client, store TicketTypeStore) (InventoryLedger, error) {
	switch cfg.LedgerBackend {
	case "", "memory":
		return NewMemoryLedger(store), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("ledger: redis backend requires a redis client")
		}
		return NewRedisLedger(redisClient, store), nil
	default:
		return nil, fmt.Errorf("ledger: unknown backend %q", cfg.LedgerBackend)
	}
}
