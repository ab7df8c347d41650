package handlers

import (
	"errors"
	"net/http"
	"time"

	"ticket-engine/config"
	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"
)

type ReservationHandler struct {
	manager *services.ReservationManager
	pricing *services.PricingEngine
	tickets services.TicketTypeStore
	config  *config.Config
}

func NewReservationHandler(manager *services.ReservationManager, pricing *services.PricingEngine, tickets services.TicketTypeStore, cfg *config.Config) *ReservationHandler {
	return &ReservationHandler{
		manager: manager,
		pricing: pricing,
		tickets: tickets,
		config:  cfg,
	}
}

// Hold - Place a time-boxed claim and return the price to charge
func (h *ReservationHandler) Hold(e *core.RequestEvent) error {
	ticketTypeID := e.Request.PathValue("id")

	var req struct {
		PurchaserID string `json:"purchaser_id"`
		Quantity    int    `json:"quantity"`
		TTLSeconds  int    `json:"ttl_seconds,omitempty"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.PurchaserID == "" {
		return apis.NewBadRequestError("purchaser_id is required", nil)
	}

	ctx := e.Request.Context()
	ttl := time.Duration(req.TTLSeconds) * time.Second

	reservation, err := h.manager.Hold(ctx, ticketTypeID, req.PurchaserID, req.Quantity, ttl)
	if err != nil {
		return h.mapHoldError(e, err)
	}

	tt, err := h.tickets.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return apis.NewNotFoundError("Ticket type not found", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"reservation_id":  reservation.ID,
		"status":          reservation.Status,
		"quantity":        reservation.Quantity,
		"expires_at":      reservation.ExpiresAt,
		"price_breakdown": h.pricing.Quote(tt, reservation.Quantity),
	})
}

// Commit - Invoked by the payment collaborator on successful payment
func (h *ReservationHandler) Commit(e *core.RequestEvent) error {
	if !h.verifyWebhookSecret(e) {
		return apis.NewUnauthorizedError("Invalid webhook secret", nil)
	}

	reservationID := e.Request.PathValue("id")

	if err := h.manager.Commit(e.Request.Context(), reservationID); err != nil {
		switch {
		case errors.Is(err, status.ErrReservationNotFound):
			return apis.NewNotFoundError("Reservation not found", err)
		case errors.Is(err, status.ErrDeadHold), errors.Is(err, status.ErrHoldExpired):
			// Permanent failure: the payment collaborator has to
			// reconcile this charge manually.
			return e.JSON(http.StatusConflict, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
		default:
			return apis.NewApiError(http.StatusInternalServerError, "Commit failed", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{"ok": true})
}

// Release - Explicit cancel or checkout abandonment signal
func (h *ReservationHandler) Release(e *core.RequestEvent) error {
	reservationID := e.Request.PathValue("id")

	if err := h.manager.Release(e.Request.Context(), reservationID); err != nil {
		if errors.Is(err, status.ErrReservationNotFound) {
			return apis.NewNotFoundError("Reservation not found", err)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Release failed", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"ok": true})
}

// Extend - Reset the expiry of an active hold mid-checkout
func (h *ReservationHandler) Extend(e *core.RequestEvent) error {
	reservationID := e.Request.PathValue("id")

	var req struct {
		TTLSeconds int `json:"ttl_seconds,omitempty"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	reservation, err := h.manager.ExtendHold(e.Request.Context(), reservationID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrReservationNotFound):
			return apis.NewNotFoundError("Reservation not found", err)
		case errors.Is(err, status.ErrDeadHold), errors.Is(err, status.ErrHoldExpired):
			return e.JSON(http.StatusConflict, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
		default:
			return apis.NewApiError(http.StatusInternalServerError, "Extend failed", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"reservation_id": reservation.ID,
		"expires_at":     reservation.ExpiresAt,
	})
}

// Get - Reservation details
func (h *ReservationHandler) Get(e *core.RequestEvent) error {
	reservationID := e.Request.PathValue("id")

	reservation, err := h.manager.Get(reservationID)
	if err != nil {
		return apis.NewNotFoundError("Reservation not found", err)
	}

	return e.JSON(http.StatusOK, reservation)
}

// mapHoldError translates business outcomes into HTTP responses.
// Sold-out and window denials are expected results, not engine errors.
func (h *ReservationHandler) mapHoldError(e *core.RequestEvent, err error) error {
	switch {
	case errors.Is(err, status.ErrTicketTypeNotFound):
		return apis.NewNotFoundError("Ticket type not found", err)
	case errors.Is(err, status.ErrSoldOut):
		return e.JSON(http.StatusConflict, map[string]any{"reason": models.ReasonSoldOut})
	case errors.Is(err, status.ErrNotActive):
		return e.JSON(http.StatusConflict, map[string]any{"reason": models.ReasonNotActive})
	case errors.Is(err, status.ErrSalesNotStarted):
		return e.JSON(http.StatusConflict, map[string]any{"reason": models.ReasonSalesNotStarted})
	case errors.Is(err, status.ErrSalesEnded):
		return e.JSON(http.StatusConflict, map[string]any{"reason": models.ReasonSalesEnded})
	case errors.Is(err, status.ErrInvalidQuantity), errors.Is(err, status.ErrQuantityBelowMinimum), errors.Is(err, status.ErrQuantityLimitExceeded):
		return apis.NewBadRequestError(err.Error(), nil)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Hold failed", err)
	}
}

func (h *ReservationHandler) verifyWebhookSecret(e *core.RequestEvent) bool {
	if h.config.WebhookSecretHash == "" {
		return true
	}
	secret := e.Request.Header.Get("X-Webhook-Secret")
	if secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.config.WebhookSecretHash), []byte(secret)) == nil
}
