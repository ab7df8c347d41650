package models

import (
	"time"
)

type TicketType struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	UnitPrice   float64 `json:"unit_price"`
	VATIncluded bool    `json:"vat_included"`
	VATRate     float64 `json:"vat_rate"`

	Capacity int `json:"capacity"`
	Sold     int `json:"sold"`
	Reserved int `json:"reserved"`

	MinPerPurchaser int `json:"min_per_purchaser"`
	MaxPerPurchaser int `json:"max_per_purchaser"`

	SalesStartAt time.Time `json:"sales_start_at"`
	SalesEndAt   time.Time `json:"sales_end_at"`

	AccessLevel string  `json:"access_level,omitempty"` // general, vip, early_bird
	Revenue     float64 `json:"revenue"`

	IsActive bool `json:"is_active"`
	IsHidden bool `json:"is_hidden"`
}

// Available is the number of units that can still be reserved.
func (t *TicketType) Available() int {
	return t.Capacity - t.Sold - t.Reserved
}

// InSalesWindow reports whether sales are open at the given instant.
// A zero SalesStartAt or SalesEndAt leaves that side of the window open.
func (t *TicketType) InSalesWindow(now time.Time) bool {
	if !t.SalesStartAt.IsZero() && now.Before(t.SalesStartAt) {
		return false
	}
	if !t.SalesEndAt.IsZero() && now.After(t.SalesEndAt) {
		return false
	}
	return true
}

type AvailabilityResult struct {
	Available      bool   `json:"available"`
	AvailableCount int    `json:"available_count"`
	Reason         string `json:"reason,omitempty"`
}

// Availability reasons returned when a check fails.
const (
	ReasonNotFound        = "not_found"
	ReasonNotActive       = "not_active"
	ReasonSalesNotStarted = "sales_not_started"
	ReasonSalesEnded      = "sales_ended"
	ReasonSoldOut         = "sold_out"
	ReasonBelowMinimum    = "below_minimum"
	ReasonExceedsLimit    = "exceeds_per_user_limit"
)
