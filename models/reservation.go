package models

import (
	"time"
)

type Reservation struct {
	ID           string     `json:"id"`
	TicketTypeID string     `json:"ticket_type_id"`
	PurchaserID  string     `json:"purchaser_id"`
	Quantity     int        `json:"quantity"`
	Status       string     `json:"status"` // active, committed, released, expired
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CommittedAt  *time.Time `json:"committed_at,omitempty"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
}

const (
	ReservationActive    = "active"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
	ReservationExpired   = "expired"
)

// Terminal reports whether the reservation can no longer transition.
func (r *Reservation) Terminal() bool {
	return r.Status != ReservationActive
}

// ExpiredAt reports whether an active reservation has passed its expiry.
func (r *Reservation) ExpiredAt(now time.Time) bool {
	return r.Status == ReservationActive && now.After(r.ExpiresAt)
}
