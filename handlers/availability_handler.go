package handlers

import (
	"net/http"

	"ticket-engine/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AvailabilityHandler struct {
	availability *services.AvailabilityService
}

func NewAvailabilityHandler(availability *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Check - Non-reserving read used before a hold is attempted
func (h *AvailabilityHandler) Check(e *core.RequestEvent) error {
	ticketTypeID := e.Request.PathValue("id")

	var req struct {
		PurchaserID string `json:"purchaser_id"`
		Quantity    int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Quantity <= 0 {
		return apis.NewBadRequestError("Quantity must be positive", nil)
	}

	result, err := h.availability.Check(e.Request.Context(), ticketTypeID, req.PurchaserID, req.Quantity)
	if err != nil {
		return apis.NewBadRequestError("Availability check failed", err)
	}

	return e.JSON(http.StatusOK, result)
}

// List - Visible ticket types of an event with live availability
func (h *AvailabilityHandler) List(e *core.RequestEvent) error {
	eventID := e.Request.URL.Query().Get("event")

	types, err := h.availability.List(e.Request.Context(), eventID)
	if err != nil {
		return apis.NewBadRequestError("Failed to list ticket types", err)
	}

	result := make([]map[string]any, 0, len(types))
	for _, tt := range types {
		result = append(result, map[string]any{
			"id":              tt.ID,
			"event_id":        tt.EventID,
			"name":            tt.Name,
			"unit_price":      tt.UnitPrice,
			"vat_included":    tt.VATIncluded,
			"access_level":    tt.AccessLevel,
			"available_count": tt.Available(),
			"sales_start_at":  tt.SalesStartAt,
			"sales_end_at":    tt.SalesEndAt,
		})
	}

	return e.JSON(http.StatusOK, result)
}
