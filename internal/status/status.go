package status

import "errors"

var (
	ErrTicketTypeNotFound  = errors.New("ticket type: not found")
	ErrReservationNotFound = errors.New("reservation: not found")

	ErrSoldOut         = errors.New("ticket type: sold out")
	ErrNotActive       = errors.New("ticket type: not active")
	ErrSalesNotStarted = errors.New("ticket type: sales not started")
	ErrSalesEnded      = errors.New("ticket type: sales ended")

	ErrInvalidQuantity       = errors.New("reservation: quantity must be positive")
	ErrQuantityBelowMinimum  = errors.New("reservation: quantity below per-purchaser minimum")
	ErrQuantityLimitExceeded = errors.New("reservation: quantity exceeds per-purchaser limit")

	ErrDeadHold    = errors.New("reservation: terminal state, cannot transition")
	ErrHoldExpired = errors.New("reservation: hold expired")

	// ErrConsistency indicates a caller bug, never an expected business
	// outcome: commit asked for more units than are reserved.
	ErrConsistency = errors.New("ledger: reserved count lower than commit quantity")
)
