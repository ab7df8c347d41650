// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-engine/config"
	"ticket-engine/handlers"
	"ticket-engine/monitoring"
	"ticket-engine/security"
	"ticket-engine/services"
	"ticket-engine/utils"

	_ "ticket-engine/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis only when the ledger lives there
	var redisClient *redis.Client
	if cfg.LedgerBackend == "redis" {
		redisClient = utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
	}

	// Initialize PubNub
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" || cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		pn = pubnub.NewPubNub(pnConfig)
	}

	// Initialize services
	store := services.NewPBStore(app)
	ledger, err := services.NewLedger(cfg, redisClient, store)
	if err != nil {
		log.Fatal(err)
	}

	monitor := monitoring.NewMonitor()
	pricingEngine := services.NewPricingEngine(cfg)
	reservationManager := services.NewReservationManager(ledger, store, store, pn, monitor, cfg)
	availabilityService := services.NewAvailabilityService(ledger, store, reservationManager)
	reaper := services.NewExpiryReaper(reservationManager, cfg)
	paymentListener := services.NewPaymentListener(pn, reservationManager)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.HoldRateLimit, time.Minute)

	// Initialize handlers
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	reservationHandler := handlers.NewReservationHandler(reservationManager, pricingEngine, store, cfg)
	adminHandler := handlers.NewAdminHandler(reservationManager, ledger, store)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background tasks
	reaper.Start(ctx)
	paymentListener.Start()
	if cfg.EnableMetrics {
		monitor.StartCollecting(30*time.Second, func() map[string]monitoring.InventoryStat {
			return collectInventoryStats(ctx, store, ledger, reservationManager)
		})
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel, reaper, monitor)

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		restoreReservations(ctx, store, reservationManager)

		// Ticket type endpoints
		e.Router.GET("/api/v1/ticket-types", availabilityHandler.List)
		e.Router.POST("/api/v1/ticket-types/{id}/availability", availabilityHandler.Check)
		e.Router.POST("/api/v1/ticket-types/{id}/hold", rateLimiter.LimitHolds(reservationHandler.Hold))

		// Reservation endpoints
		e.Router.GET("/api/v1/reservations/{id}", reservationHandler.Get)
		e.Router.POST("/api/v1/reservations/{id}/commit", reservationHandler.Commit)
		e.Router.POST("/api/v1/reservations/{id}/release", reservationHandler.Release)
		e.Router.POST("/api/v1/reservations/{id}/extend", reservationHandler.Extend)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/inventory-dashboard", adminHandler.GetInventoryDashboard)
		e.Router.POST("/api/v1/admin/force-sweep", adminHandler.ForceSweep)

		// Health check
		e.Router.GET("/health", func(re *core.RequestEvent) error {
			if redisClient != nil {
				if err := utils.RedisHealthCheck(redisClient); err != nil {
					return re.JSON(http.StatusServiceUnavailable, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}
			return re.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// restoreReservations re-seats persisted active holds after a restart and
// immediately sweeps the ones that lapsed while the process was down, so
// their capacity returns to the pool.
func restoreReservations(ctx context.Context, store services.ReservationStore, manager *services.ReservationManager) {
	log.Println("Restoring active reservations...")

	reservations, err := store.ListActiveReservations(ctx)
	if err != nil {
		log.Printf("Error listing active reservations: %v", err)
		return
	}

	restored := manager.Restore(reservations)
	expired := manager.SweepExpired(ctx)

	log.Printf("Restored %d active reservations, expired %d stale ones", restored, expired)
}

func collectInventoryStats(ctx context.Context, store services.TicketTypeStore, ledger services.InventoryLedger, manager *services.ReservationManager) map[string]monitoring.InventoryStat {
	stats := make(map[string]monitoring.InventoryStat)

	types, err := store.ListTicketTypes(ctx, "", true)
	if err != nil {
		log.Printf("Error collecting inventory stats: %v", err)
		return stats
	}

	holdCounts := manager.ActiveHoldCounts()
	for _, tt := range types {
		snap, err := ledger.Snapshot(ctx, tt.ID)
		if err != nil {
			continue
		}
		stats[tt.ID] = monitoring.InventoryStat{
			Available:   snap.Available(),
			ActiveHolds: holdCounts[tt.ID],
		}
	}

	return stats
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, reaper *services.ExpiryReaper, monitor *monitoring.Monitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
	reaper.Stop()
	monitor.Stop()
}
