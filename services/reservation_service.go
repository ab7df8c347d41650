package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ticket-engine/config"
	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/monitoring"
	"ticket-engine/utils"

	pubnub "github.com/pubnub/go"
)

// ReservationManager owns every Reservation and is the only writer of
// their state. All transitions run through Hold, Commit, Release,
// ExtendHold and the expiry sweeps; each is idempotent, so the reaper
// and lazy sweeps may race without double-crediting capacity.
//
// The manager mutex guards the hold map and the status field of each
// record. A transition flips the status under the mutex first and
// performs the matching ledger movement after unlocking, so the ledger
// is driven exactly once per transition and no I/O runs under the lock.
type ReservationManager struct {
	ledger       InventoryLedger
	tickets      TicketTypeStore
	reservations ReservationStore
	pubnub       *pubnub.PubNub
	monitor      *monitoring.Monitor
	config       *config.Config

	mu    sync.RWMutex
	holds map[string]*models.Reservation

	now func() time.Time
}

func NewReservationManager(
	ledger InventoryLedger,
	tickets TicketTypeStore,
	reservations ReservationStore,
	pn *pubnub.PubNub,
	monitor *monitoring.Monitor,
	cfg *config.Config,
) *ReservationManager {
	return &ReservationManager{
		ledger:       ledger,
		tickets:      tickets,
		reservations: reservations,
		pubnub:       pn,
		monitor:      monitor,
		config:       cfg,
		holds:        make(map[string]*models.Reservation),
		now:          time.Now,
	}
}

// Hold places a time-boxed claim on quantity units of a ticket type.
// Sold-out, sales-window and quantity-limit outcomes come back as
// sentinel errors from the status package; only infrastructure
// failures are unexpected.
func (m *ReservationManager) Hold(ctx context.Context, ticketTypeID, purchaserID string, quantity int, ttl time.Duration) (*models.Reservation, error) {
	if quantity <= 0 {
		return nil, status.ErrInvalidQuantity
	}

	tt, err := m.tickets.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	if !tt.IsActive {
		return nil, status.ErrNotActive
	}

	now := m.now()
	if !tt.SalesStartAt.IsZero() && now.Before(tt.SalesStartAt) {
		return nil, status.ErrSalesNotStarted
	}
	if !tt.SalesEndAt.IsZero() && now.After(tt.SalesEndAt) {
		return nil, status.ErrSalesEnded
	}

	minQty, maxQty := m.purchaserBounds(tt)
	if quantity < minQty {
		return nil, status.ErrQuantityBelowMinimum
	}
	if quantity+m.ActiveHoldQuantity(ticketTypeID, purchaserID) > maxQty {
		return nil, status.ErrQuantityLimitExceeded
	}

	if ttl <= 0 {
		ttl = m.config.HoldTTL
	}
	if ttl > m.config.MaxHoldTTL {
		ttl = m.config.MaxHoldTTL
	}

	// Free capacity held by already-expired reservations before the
	// reserve attempt, so abandoned checkouts cannot starve sales
	// between reaper runs.
	m.SweepTicketType(ctx, ticketTypeID)

	ok, _, err := m.ledger.TryReserve(ctx, ticketTypeID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.monitor.TrackReservationOp("hold", ticketTypeID, "sold_out")
		return nil, status.ErrSoldOut
	}

	id, err := utils.NewHoldID()
	if err != nil {
		// The units are reserved; give them back rather than leak.
		if relErr := m.ledger.Release(ctx, ticketTypeID, quantity); relErr != nil {
			log.Printf("reservation: releasing after hold id failure for %s: %v", ticketTypeID, relErr)
		}
		return nil, err
	}

	r := &models.Reservation{
		ID:           id,
		TicketTypeID: ticketTypeID,
		PurchaserID:  purchaserID,
		Quantity:     quantity,
		Status:       models.ReservationActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	m.mu.Lock()
	m.holds[id] = r
	m.mu.Unlock()

	m.persist(ctx, r)
	m.publish(fmt.Sprintf("purchaser-%s", purchaserID), map[string]any{
		"type":           "hold_created",
		"reservation_id": id,
		"ticket_type_id": ticketTypeID,
		"quantity":       quantity,
		"expires_at":     r.ExpiresAt,
	})
	m.monitor.TrackReservationOp("hold", ticketTypeID, "success")

	out := *r
	return &out, nil
}

// Commit converts an active hold into a confirmed sale. Idempotent:
// committing a committed hold is a no-op success. A released or
// expired hold is a permanent failure the payment collaborator must
// reconcile manually.
func (m *ReservationManager) Commit(ctx context.Context, reservationID string) error {
	m.mu.Lock()
	r, ok := m.holds[reservationID]
	if !ok {
		m.mu.Unlock()
		return status.ErrReservationNotFound
	}

	switch r.Status {
	case models.ReservationCommitted:
		m.mu.Unlock()
		return nil
	case models.ReservationReleased, models.ReservationExpired:
		m.mu.Unlock()
		m.monitor.TrackReservationOp("commit", r.TicketTypeID, "dead_hold")
		return fmt.Errorf("commit %s: %w", reservationID, status.ErrDeadHold)
	}

	now := m.now()
	if now.After(r.ExpiresAt) {
		// Payment confirmation arrived after the hold lapsed; expire
		// it here instead of waiting for the reaper.
		r.Status = models.ReservationExpired
		t := now
		r.ReleasedAt = &t
		rec := *r
		m.mu.Unlock()

		m.finishExpiry(ctx, &rec)
		m.monitor.TrackReservationOp("commit", rec.TicketTypeID, "expired")
		return fmt.Errorf("commit %s: %w", reservationID, status.ErrHoldExpired)
	}

	r.Status = models.ReservationCommitted
	t := now
	r.CommittedAt = &t
	rec := *r
	m.mu.Unlock()

	if err := m.ledger.Commit(ctx, rec.TicketTypeID, rec.Quantity); err != nil {
		// Reserved counter below the hold quantity is an invariant
		// violation, never a business outcome.
		log.Printf("reservation: ledger commit failed for %s (%s): %v", rec.ID, rec.TicketTypeID, err)
		m.monitor.TrackReservationOp("commit", rec.TicketTypeID, "consistency_error")
		return err
	}

	m.persist(ctx, &rec)
	m.addRevenue(ctx, &rec)
	m.publish(fmt.Sprintf("purchaser-%s", rec.PurchaserID), map[string]any{
		"type":           "hold_committed",
		"reservation_id": rec.ID,
		"ticket_type_id": rec.TicketTypeID,
		"quantity":       rec.Quantity,
	})
	m.monitor.TrackReservationOp("commit", rec.TicketTypeID, "success")
	m.monitor.TrackHoldLifetime(rec.TicketTypeID, now.Sub(rec.CreatedAt))
	return nil
}

// Release cancels a hold and returns its units to the pool.
// Idempotent: releasing an already-terminal hold is a no-op success.
func (m *ReservationManager) Release(ctx context.Context, reservationID string) error {
	m.mu.Lock()
	r, ok := m.holds[reservationID]
	if !ok {
		m.mu.Unlock()
		return status.ErrReservationNotFound
	}

	if r.Status != models.ReservationActive {
		m.mu.Unlock()
		return nil
	}

	now := m.now()
	r.Status = models.ReservationReleased
	t := now
	r.ReleasedAt = &t
	rec := *r
	m.mu.Unlock()

	if err := m.ledger.Release(ctx, rec.TicketTypeID, rec.Quantity); err != nil {
		log.Printf("reservation: ledger release failed for %s (%s): %v", rec.ID, rec.TicketTypeID, err)
	}

	m.persist(ctx, &rec)
	m.publish(fmt.Sprintf("purchaser-%s", rec.PurchaserID), map[string]any{
		"type":           "hold_released",
		"reservation_id": rec.ID,
		"ticket_type_id": rec.TicketTypeID,
	})
	m.monitor.TrackReservationOp("release", rec.TicketTypeID, "success")
	m.monitor.TrackHoldLifetime(rec.TicketTypeID, now.Sub(rec.CreatedAt))
	return nil
}

// ExtendHold pushes the expiry of an active hold forward, e.g. while
// the purchaser sits in a payment gateway redirect. Rejected once the
// hold expired or reached a terminal state.
func (m *ReservationManager) ExtendHold(ctx context.Context, reservationID string, ttl time.Duration) (*models.Reservation, error) {
	if ttl <= 0 {
		ttl = m.config.HoldTTL
	}
	if ttl > m.config.MaxHoldTTL {
		ttl = m.config.MaxHoldTTL
	}

	m.mu.Lock()
	r, ok := m.holds[reservationID]
	if !ok {
		m.mu.Unlock()
		return nil, status.ErrReservationNotFound
	}

	if r.Status != models.ReservationActive {
		m.mu.Unlock()
		return nil, fmt.Errorf("extend %s: %w", reservationID, status.ErrDeadHold)
	}

	now := m.now()
	if now.After(r.ExpiresAt) {
		r.Status = models.ReservationExpired
		t := now
		r.ReleasedAt = &t
		rec := *r
		m.mu.Unlock()

		m.finishExpiry(ctx, &rec)
		return nil, fmt.Errorf("extend %s: %w", reservationID, status.ErrHoldExpired)
	}

	r.ExpiresAt = now.Add(ttl)
	rec := *r
	m.mu.Unlock()

	m.persist(ctx, &rec)
	m.monitor.TrackReservationOp("extend", rec.TicketTypeID, "success")
	return &rec, nil
}

// Get returns a copy of the reservation; callers never touch the
// manager's record.
func (m *ReservationManager) Get(reservationID string) (*models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.holds[reservationID]
	if !ok {
		return nil, status.ErrReservationNotFound
	}
	out := *r
	return &out, nil
}

// SweepTicketType expires every lapsed active hold of one ticket type.
// Safe to call concurrently with the reaper: the status flip under the
// mutex makes each expiry run once.
func (m *ReservationManager) SweepTicketType(ctx context.Context, ticketTypeID string) int {
	return m.sweep(ctx, func(r *models.Reservation) bool {
		return r.TicketTypeID == ticketTypeID
	})
}

// SweepExpired expires every lapsed active hold across all ticket
// types. Called by the background reaper.
func (m *ReservationManager) SweepExpired(ctx context.Context) int {
	return m.sweep(ctx, func(*models.Reservation) bool { return true })
}

func (m *ReservationManager) sweep(ctx context.Context, match func(*models.Reservation) bool) int {
	now := m.now()

	m.mu.Lock()
	var expired []models.Reservation
	for _, r := range m.holds {
		if r.Status != models.ReservationActive || !match(r) || !now.After(r.ExpiresAt) {
			continue
		}
		r.Status = models.ReservationExpired
		t := now
		r.ReleasedAt = &t
		expired = append(expired, *r)
	}
	m.mu.Unlock()

	for i := range expired {
		m.finishExpiry(ctx, &expired[i])
	}
	return len(expired)
}

// finishExpiry performs the ledger release and bookkeeping for a
// reservation whose status was already flipped to expired.
func (m *ReservationManager) finishExpiry(ctx context.Context, rec *models.Reservation) {
	if err := m.ledger.Release(ctx, rec.TicketTypeID, rec.Quantity); err != nil {
		log.Printf("reservation: ledger release on expiry failed for %s (%s): %v", rec.ID, rec.TicketTypeID, err)
	}

	m.persist(ctx, rec)
	m.publish(fmt.Sprintf("purchaser-%s", rec.PurchaserID), map[string]any{
		"type":           "hold_expired",
		"reservation_id": rec.ID,
		"ticket_type_id": rec.TicketTypeID,
	})
	m.monitor.TrackReservationOp("expire", rec.TicketTypeID, "success")
}

// Restore re-seats persisted active holds after a restart. The ledger
// counters come from the store and already include these units; only
// the in-process records need rebuilding.
func (m *ReservationManager) Restore(reservations []*models.Reservation) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for _, r := range reservations {
		if r.Status != models.ReservationActive {
			continue
		}
		rec := *r
		m.holds[rec.ID] = &rec
		restored++
	}
	return restored
}

// ActiveHoldQuantity sums the purchaser's active hold units for one
// ticket type; used for the per-purchaser limit.
func (m *ReservationManager) ActiveHoldQuantity(ticketTypeID, purchaserID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, r := range m.holds {
		if r.Status == models.ReservationActive && r.TicketTypeID == ticketTypeID && r.PurchaserID == purchaserID {
			total += r.Quantity
		}
	}
	return total
}

// ActiveHoldCounts returns active reservation counts per ticket type,
// for the metrics collector and the admin dashboard.
func (m *ReservationManager) ActiveHoldCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range m.holds {
		if r.Status == models.ReservationActive {
			counts[r.TicketTypeID]++
		}
	}
	return counts
}

func (m *ReservationManager) purchaserBounds(tt *models.TicketType) (int, int) {
	minQty := tt.MinPerPurchaser
	if minQty <= 0 {
		minQty = m.config.DefaultMinPerPurchaser
	}
	maxQty := tt.MaxPerPurchaser
	if maxQty <= 0 {
		maxQty = m.config.DefaultMaxPerPurchaser
	}
	return minQty, maxQty
}

func (m *ReservationManager) persist(ctx context.Context, rec *models.Reservation) {
	if m.reservations == nil {
		return
	}
	if err := m.reservations.SaveReservation(ctx, rec); err != nil {
		log.Printf("reservation: persisting %s failed: %v", rec.ID, err)
	}
}

func (m *ReservationManager) addRevenue(ctx context.Context, rec *models.Reservation) {
	tt, err := m.tickets.GetTicketType(ctx, rec.TicketTypeID)
	if err != nil {
		log.Printf("reservation: revenue lookup for %s failed: %v", rec.TicketTypeID, err)
		return
	}
	amount := tt.UnitPrice * float64(rec.Quantity)
	if err := m.tickets.AddRevenue(ctx, rec.TicketTypeID, amount); err != nil {
		log.Printf("reservation: revenue update for %s failed: %v", rec.TicketTypeID, err)
	}
}

func (m *ReservationManager) publish(channel string, message map[string]any) {
	if m.pubnub == nil {
		return
	}
	m.pubnub.Publish().
		Channel(channel).
		Message(message).
		Execute()
}
