package services

import (
	"context"

	"ticket-engine/models"
)

// TicketTypeStore is the persistence boundary for ticket tiers. The
// ledger owns the live counters; the store is read on first touch and
// written behind after each counter change, never inside a ledger
// critical section.
type TicketTypeStore interface {
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID string, includeHidden bool) ([]*models.TicketType, error)
	UpdateCounters(ctx context.Context, id string, sold, reserved int) error
	AddRevenue(ctx context.Context, id string, amount float64) error
}

// ReservationStore persists hold records so reserved capacity survives
// a restart. Writes are best-effort write-behind; the in-process
// reservation map stays authoritative.
type ReservationStore interface {
	SaveReservation(ctx context.Context, r *models.Reservation) error
	ListActiveReservations(ctx context.Context) ([]*models.Reservation, error)
}
