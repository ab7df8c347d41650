package services

import (
	"context"
	"testing"
	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/monitoring"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAvailability(types ...*models.TicketType) (*AvailabilityService, *ReservationManager) {
	store := NewMemoryStore()
	for _, tt := range types {
		store.PutTicketType(tt)
	}
	ledger := NewMemoryLedger(store)

	manager := NewReservationManager(ledger, store, store, nil, monitoring.NewMonitor(), testManagerConfig())
	return NewAvailabilityService(ledger, store, manager), manager
}

func TestAvailabilityService_Check_Available(t *testing.T) {
	svc, _ := setupTestAvailability(generalAdmission(10))

	result, err := svc.Check(context.Background(), "tt-1", "user-1", 2)

	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, 10, result.AvailableCount)
	assert.Empty(t, result.Reason)
}

func TestAvailabilityService_Check_Denials(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("not found", func(t *testing.T) {
		svc, _ := setupTestAvailability(generalAdmission(10))
		result, err := svc.Check(ctx, "missing", "user-1", 1)
		require.NoError(t, err)
		assert.False(t, result.Available)
		assert.Equal(t, models.ReasonNotFound, result.Reason)
	})

	t.Run("not active", func(t *testing.T) {
		tt := generalAdmission(10)
		tt.IsActive = false
		svc, _ := setupTestAvailability(tt)
		result, err := svc.Check(ctx, "tt-1", "user-1", 1)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonNotActive, result.Reason)
	})

	t.Run("sales not started", func(t *testing.T) {
		tt := generalAdmission(10)
		tt.SalesStartAt = base.Add(time.Hour)
		svc, _ := setupTestAvailability(tt)
		svc.now = func() time.Time { return base }
		result, err := svc.Check(ctx, "tt-1", "user-1", 1)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonSalesNotStarted, result.Reason)
	})

	t.Run("sales ended", func(t *testing.T) {
		tt := generalAdmission(10)
		tt.SalesEndAt = base.Add(-time.Hour)
		svc, _ := setupTestAvailability(tt)
		svc.now = func() time.Time { return base }
		result, err := svc.Check(ctx, "tt-1", "user-1", 1)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonSalesEnded, result.Reason)
	})

	t.Run("below minimum", func(t *testing.T) {
		tt := generalAdmission(10)
		tt.MinPerPurchaser = 2
		svc, _ := setupTestAvailability(tt)
		result, err := svc.Check(ctx, "tt-1", "user-1", 1)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonBelowMinimum, result.Reason)
	})

	t.Run("sold out", func(t *testing.T) {
		tt := generalAdmission(10)
		tt.Sold = 9
		svc, _ := setupTestAvailability(tt)
		result, err := svc.Check(ctx, "tt-1", "user-1", 2)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonSoldOut, result.Reason)
		assert.Equal(t, 1, result.AvailableCount)
	})
}

func TestAvailabilityService_Check_PerPurchaserLimit(t *testing.T) {
	svc, manager := setupTestAvailability(generalAdmission(100))
	ctx := context.Background()

	_, err := manager.Hold(ctx, "tt-1", "user-1", 4, 0)
	require.NoError(t, err)

	// 4 active + 2 requested exceeds the default limit of 5
	result, err := svc.Check(ctx, "tt-1", "user-1", 2)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, models.ReasonExceedsLimit, result.Reason)

	// A different purchaser still passes
	result, err = svc.Check(ctx, "tt-1", "user-2", 2)
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestAvailabilityService_Check_InvalidQuantity(t *testing.T) {
	svc, _ := setupTestAvailability(generalAdmission(10))

	_, err := svc.Check(context.Background(), "tt-1", "user-1", 0)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)
}

func TestAvailabilityService_Check_SeesThroughExpiredHolds(t *testing.T) {
	svc, manager := setupTestAvailability(generalAdmission(2))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	manager.now = func() time.Time { return clock }
	svc.now = func() time.Time { return clock }

	_, err := manager.Hold(ctx, "tt-1", "user-1", 2, 0)
	require.NoError(t, err)

	result, err := svc.Check(ctx, "tt-1", "user-2", 1)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonSoldOut, result.Reason)

	// Once the hold lapses, the check reports the freed capacity even
	// though the reaper has not run
	clock = base.Add(20 * time.Minute)

	result, err = svc.Check(ctx, "tt-1", "user-2", 1)
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, 2, result.AvailableCount)
}

func TestAvailabilityService_List(t *testing.T) {
	vip := &models.TicketType{
		ID: "tt-vip", EventID: "ev-1", Name: "VIP",
		UnitPrice: 1500, Capacity: 20, IsActive: true, AccessLevel: "vip",
	}
	ga := &models.TicketType{
		ID: "tt-ga", EventID: "ev-1", Name: "General",
		UnitPrice: 500, Capacity: 100, IsActive: true,
	}
	hidden := &models.TicketType{
		ID: "tt-hidden", EventID: "ev-1", Name: "Comp",
		UnitPrice: 0, Capacity: 10, IsActive: true, IsHidden: true,
	}
	other := &models.TicketType{
		ID: "tt-other", EventID: "ev-2", Name: "Other Event",
		UnitPrice: 100, Capacity: 10, IsActive: true,
	}

	svc, manager := setupTestAvailability(vip, ga, hidden, other)
	ctx := context.Background()

	_, err := manager.Hold(ctx, "tt-ga", "user-1", 5, 0)
	require.NoError(t, err)

	types, err := svc.List(ctx, "ev-1")
	require.NoError(t, err)

	// Hidden tiers and other events excluded, cheapest first
	require.Len(t, types, 2)
	assert.Equal(t, "tt-ga", types[0].ID)
	assert.Equal(t, "tt-vip", types[1].ID)

	// Counters come from the live ledger, not the stale store row
	assert.Equal(t, 5, types[0].Reserved)
	assert.Equal(t, 95, types[0].Available())
}
