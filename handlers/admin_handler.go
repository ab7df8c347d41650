package handlers

import (
	"net/http"

	"ticket-engine/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	manager *services.ReservationManager
	ledger  services.InventoryLedger
	tickets services.TicketTypeStore
}

func NewAdminHandler(manager *services.ReservationManager, ledger services.InventoryLedger, tickets services.TicketTypeStore) *AdminHandler {
	return &AdminHandler{
		manager: manager,
		ledger:  ledger,
		tickets: tickets,
	}
}

// GetInventoryDashboard - Live counters and hold pressure per ticket type
func (h *AdminHandler) GetInventoryDashboard(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	types, err := h.tickets.ListTicketTypes(ctx, "", true)
	if err != nil {
		return apis.NewBadRequestError("Failed to list ticket types", err)
	}

	holdCounts := h.manager.ActiveHoldCounts()

	rows := make([]map[string]any, 0, len(types))
	for _, tt := range types {
		snap, err := h.ledger.Snapshot(ctx, tt.ID)
		if err != nil {
			continue
		}

		rows = append(rows, map[string]any{
			"ticket_type_id": tt.ID,
			"event_id":       tt.EventID,
			"name":           tt.Name,
			"capacity":       snap.Capacity,
			"sold":           snap.Sold,
			"reserved":       snap.Reserved,
			"available":      snap.Available(),
			"active_holds":   holdCounts[tt.ID],
			"revenue":        tt.Revenue,
			"is_hidden":      tt.IsHidden,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_types": rows,
	})
}

// ForceSweep - Run an expiry sweep immediately
func (h *AdminHandler) ForceSweep(e *core.RequestEvent) error {
	expired := h.manager.SweepExpired(e.Request.Context())

	return e.JSON(http.StatusOK, map[string]any{
		"expired": expired,
	})
}
