package services

import (
	"context"
	"errors"
	"time"

	"ticket-engine/internal/status"
	"ticket-engine/models"
)

// AvailabilityService is the read side: it answers "can N tickets of
// this type be bought right now" without reserving anything. Each
// check triggers a lazy expiry sweep for the ticket type first, so a
// crashed reaper never leaves stale holds hiding capacity.
type AvailabilityService struct {
	ledger  InventoryLedger
	tickets TicketTypeStore
	manager *ReservationManager

	now func() time.Time
}

func NewAvailabilityService(ledger InventoryLedger, tickets TicketTypeStore, manager *ReservationManager) *AvailabilityService {
	return &AvailabilityService{
		ledger:  ledger,
		tickets: tickets,
		manager: manager,
		now:     time.Now,
	}
}

// Check reports whether quantity units can currently be held by the
// purchaser. Business denials come back in the result's Reason; an
// error means the engine itself failed.
func (s *AvailabilityService) Check(ctx context.Context, ticketTypeID, purchaserID string, quantity int) (*models.AvailabilityResult, error) {
	if quantity <= 0 {
		return nil, status.ErrInvalidQuantity
	}

	tt, err := s.tickets.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		if errors.Is(err, status.ErrTicketTypeNotFound) {
			return &models.AvailabilityResult{Reason: models.ReasonNotFound}, nil
		}
		return nil, err
	}

	s.manager.SweepTicketType(ctx, ticketTypeID)

	snap, err := s.ledger.Snapshot(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	available := snap.Available()

	if !tt.IsActive {
		return &models.AvailabilityResult{Reason: models.ReasonNotActive}, nil
	}

	now := s.now()
	if !tt.SalesStartAt.IsZero() && now.Before(tt.SalesStartAt) {
		return &models.AvailabilityResult{Reason: models.ReasonSalesNotStarted}, nil
	}
	if !tt.SalesEndAt.IsZero() && now.After(tt.SalesEndAt) {
		return &models.AvailabilityResult{Reason: models.ReasonSalesEnded}, nil
	}

	minQty, maxQty := s.manager.purchaserBounds(tt)
	if quantity < minQty {
		return &models.AvailabilityResult{AvailableCount: available, Reason: models.ReasonBelowMinimum}, nil
	}
	if quantity+s.manager.ActiveHoldQuantity(ticketTypeID, purchaserID) > maxQty {
		return &models.AvailabilityResult{AvailableCount: available, Reason: models.ReasonExceedsLimit}, nil
	}

	if available < quantity {
		return &models.AvailabilityResult{AvailableCount: available, Reason: models.ReasonSoldOut}, nil
	}

	return &models.AvailabilityResult{Available: true, AvailableCount: available}, nil
}

// List returns the visible ticket types of an event with their
// counters refreshed from the ledger, cheapest first, like the public
// event page shows them.
func (s *AvailabilityService) List(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	types, err := s.tickets.ListTicketTypes(ctx, eventID, false)
	if err != nil {
		return nil, err
	}

	for _, tt := range types {
		snap, err := s.ledger.Snapshot(ctx, tt.ID)
		if err != nil {
			continue
		}
		tt.Sold = snap.Sold
		tt.Reserved = snap.Reserved
	}
	return types, nil
}
