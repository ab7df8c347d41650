package services

import (
	"context"
	"log"
	"sync"
	"time"

	"ticket-engine/config"
)

// ExpiryReaper sweeps lapsed holds on a fixed interval. One goroutine
// covers every ticket type; the manager's sweep is idempotent, so the
// reaper can overlap with lazy sweeps from the availability path.
type ExpiryReaper struct {
	manager  *ReservationManager
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewExpiryReaper(manager *ReservationManager, cfg *config.Config) *ExpiryReaper {
	interval := cfg.ReaperInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpiryReaper{
		manager:  manager,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (r *ExpiryReaper) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
}

func (r *ExpiryReaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Println("Expiry reaper started")

	for {
		select {
		case <-ticker.C:
			if expired := r.manager.SweepExpired(ctx); expired > 0 {
				log.Printf("Expiry reaper released %d lapsed holds", expired)
			}
		case <-ctx.Done():
			log.Println("Expiry reaper stopping")
			return
		case <-r.stopChan:
			log.Println("Expiry reaper stopping")
			return
		}
	}
}

func (r *ExpiryReaper) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}
