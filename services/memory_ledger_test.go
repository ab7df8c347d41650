package services

import (
	"context"
	"sync"
	"testing"
	"ticket-engine/internal/status"
	"ticket-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestMemoryLedger(capacity, sold, reserved int) (*MemoryLedger, *MemoryStore) {
	store := NewMemoryStore()
	store.PutTicketType(&models.TicketType{
		ID:       "tt-1",
		EventID:  "ev-1",
		Name:     "General",
		Capacity: capacity,
		Sold:     sold,
		Reserved: reserved,
		IsActive: true,
	})
	return NewMemoryLedger(store), store
}

func TestMemoryLedger_TryReserve_Success(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 2, 3)
	ctx := context.Background()

	ok, remaining, err := ledger.TryReserve(ctx, "tt-1", 4)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Sold)
	assert.Equal(t, 7, snap.Reserved)
}

func TestMemoryLedger_TryReserve_Insufficient(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 5, 4)
	ctx := context.Background()

	ok, available, err := ledger.TryReserve(ctx, "tt-1", 2)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, available)

	// A failed reserve must not move any counter
	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Reserved)
}

func TestMemoryLedger_TryReserve_InvalidQuantity(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 0, 0)

	_, _, err := ledger.TryReserve(context.Background(), "tt-1", 0)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)

	_, _, err = ledger.TryReserve(context.Background(), "tt-1", -3)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)
}

func TestMemoryLedger_TryReserve_UnknownTicketType(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 0, 0)

	_, _, err := ledger.TryReserve(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, status.ErrTicketTypeNotFound)
}

func TestMemoryLedger_Commit_MovesReservedToSold(t *testing.T) {
	ledger, store := setupTestMemoryLedger(10, 0, 0)
	ctx := context.Background()

	ok, _, err := ledger.TryReserve(ctx, "tt-1", 3)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, ledger.Commit(ctx, "tt-1", 3))

	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Sold)
	assert.Equal(t, 0, snap.Reserved)
	assert.Equal(t, 7, snap.Available())

	// Write-behind keeps the store in step
	tt, err := store.GetTicketType(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 3, tt.Sold)
	assert.Equal(t, 0, tt.Reserved)
}

func TestMemoryLedger_Commit_MoreThanReserved(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 0, 2)
	ctx := context.Background()

	err := ledger.Commit(ctx, "tt-1", 5)

	assert.ErrorIs(t, err, status.ErrConsistency)

	// Counters untouched after the refused commit
	snap, snapErr := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, snapErr)
	assert.Equal(t, 0, snap.Sold)
	assert.Equal(t, 2, snap.Reserved)
}

func TestMemoryLedger_Release_FloorsAtZero(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 0, 2)
	ctx := context.Background()

	require.NoError(t, ledger.Release(ctx, "tt-1", 2))
	// Double release of the same hold must not go negative
	require.NoError(t, ledger.Release(ctx, "tt-1", 2))

	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Reserved)
	assert.Equal(t, 10, snap.Available())
}

func TestMemoryLedger_Load_OverridesStoreCounters(t *testing.T) {
	ledger, _ := setupTestMemoryLedger(10, 0, 0)
	ctx := context.Background()

	require.NoError(t, ledger.Load(ctx, &models.TicketType{
		ID:       "tt-1",
		Capacity: 50,
		Sold:     20,
		Reserved: 5,
	}))

	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Capacity)
	assert.Equal(t, 20, snap.Sold)
	assert.Equal(t, 25, snap.Available())
}

// The core oversell test: more contenders than capacity, each taking
// one unit. Exactly capacity of them may win.
func TestMemoryLedger_ConcurrentReserves_NeverOversell(t *testing.T) {
	const capacity = 100
	const contenders = 150

	ledger, _ := setupTestMemoryLedger(capacity, 0, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := ledger.TryReserve(ctx, "tt-1", 1)
			if err == nil && ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded)

	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, capacity, snap.Reserved)
	assert.Equal(t, 0, snap.Available())
	assert.LessOrEqual(t, snap.Sold+snap.Reserved, snap.Capacity)
}

func TestMemoryLedger_ConcurrentMixedTraffic_InvariantHolds(t *testing.T) {
	const capacity = 40

	ledger, _ := setupTestMemoryLedger(capacity, 0, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, _, err := ledger.TryReserve(ctx, "tt-1", 2)
			if err != nil || !ok {
				return
			}
			if n%2 == 0 {
				_ = ledger.Commit(ctx, "tt-1", 2)
			} else {
				_ = ledger.Release(ctx, "tt-1", 2)
			}
		}(i)
	}
	wg.Wait()

	snap, err := ledger.Snapshot(ctx, "tt-1")
	require.NoError(t, err)
	assert.LessOrEqual(t, snap.Sold+snap.Reserved, snap.Capacity)
	assert.GreaterOrEqual(t, snap.Reserved, 0)
	assert.GreaterOrEqual(t, snap.Sold, 0)
}
