package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketType_Available(t *testing.T) {
	tt := &TicketType{Capacity: 100, Sold: 40, Reserved: 15}
	assert.Equal(t, 45, tt.Available())

	tt = &TicketType{Capacity: 10, Sold: 10}
	assert.Equal(t, 0, tt.Available())
}

func TestTicketType_InSalesWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected bool
	}{
		{"no window configured", time.Time{}, time.Time{}, true},
		{"inside window", now.Add(-time.Hour), now.Add(time.Hour), true},
		{"before start", now.Add(time.Hour), now.Add(2 * time.Hour), false},
		{"after end", now.Add(-2 * time.Hour), now.Add(-time.Hour), false},
		{"open start", time.Time{}, now.Add(time.Hour), true},
		{"open end", now.Add(-time.Hour), time.Time{}, true},
		{"exactly at start", now, now.Add(time.Hour), true},
		{"exactly at end", now.Add(-time.Hour), now, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := &TicketType{SalesStartAt: tc.start, SalesEndAt: tc.end}
			assert.Equal(t, tc.expected, tt.InSalesWindow(now))
		})
	}
}

func TestReservation_Terminal(t *testing.T) {
	assert.False(t, (&Reservation{Status: ReservationActive}).Terminal())
	assert.True(t, (&Reservation{Status: ReservationCommitted}).Terminal())
	assert.True(t, (&Reservation{Status: ReservationReleased}).Terminal())
	assert.True(t, (&Reservation{Status: ReservationExpired}).Terminal())
}

func TestReservation_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	live := &Reservation{Status: ReservationActive, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, live.ExpiredAt(now))

	lapsed := &Reservation{Status: ReservationActive, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, lapsed.ExpiredAt(now))

	// A committed reservation never reads as expired
	committed := &Reservation{Status: ReservationCommitted, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, committed.ExpiredAt(now))
}
