package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	availableTickets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_available_total",
			Help: "Currently available units per ticket type",
		},
		[]string{"ticket_type_id"},
	)

	activeHolds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_active_holds_total",
			Help: "Currently active reservations per ticket type",
		},
		[]string{"ticket_type_id"},
	)

	reservationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Total reservation operations",
		},
		[]string{"operation", "ticket_type_id", "status"},
	)

	holdLifetime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hold_lifetime_seconds",
			Help:    "Time from hold creation to its terminal transition",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"ticket_type_id"},
	)
)

// InventoryStat is one ticket type's gauge sample, produced by the
// snapshot function the collector is started with.
type InventoryStat struct {
	Available   int
	ActiveHolds int
}

type Monitor struct {
	stopChan chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{stopChan: make(chan struct{})}
}

// StartCollecting samples the gauges from snapshot on a fixed interval
// until Stop is called.
func (m *Monitor) StartCollecting(interval time.Duration, snapshot func() map[string]InventoryStat) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for id, stat := range snapshot() {
					availableTickets.WithLabelValues(id).Set(float64(stat.Available))
					activeHolds.WithLabelValues(id).Set(float64(stat.ActiveHolds))
				}
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	close(m.stopChan)
}

// TrackReservationOp counts one hold/commit/release/expire outcome.
func (m *Monitor) TrackReservationOp(operation, ticketTypeID, status string) {
	if m == nil {
		return
	}
	reservationOperations.WithLabelValues(operation, ticketTypeID, status).Inc()
}

// TrackHoldLifetime observes how long a hold lived before it ended.
func (m *Monitor) TrackHoldLifetime(ticketTypeID string, duration time.Duration) {
	if m == nil {
		return
	}
	holdLifetime.WithLabelValues(ticketTypeID).Observe(duration.Seconds())
}
