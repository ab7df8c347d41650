package services

import (
	"context"
	"fmt"

	"ticket-engine/internal/status"
	"ticket-engine/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// PBStore persists ticket types and reservations in the PocketBase
// collections created by the migrations. Counter updates go through
// parameterized SQL so a write-behind sync is one statement.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) GetTicketType(_ context.Context, id string) (*models.TicketType, error) {
	record, err := s.app.FindRecordById("ticket_types", id)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", id, status.ErrTicketTypeNotFound)
	}
	return ticketTypeFromRecord(record), nil
}

func (s *PBStore) ListTicketTypes(_ context.Context, eventID string, includeHidden bool) ([]*models.TicketType, error) {
	filter := "is_active = true"
	params := dbx.Params{}
	if eventID != "" {
		filter += " && event_id = {:eventId}"
		params["eventId"] = eventID
	}
	if !includeHidden {
		filter += " && is_hidden = false"
	}

	records, err := s.app.FindRecordsByFilter("ticket_types", filter, "+unit_price", 500, 0, params)
	if err != nil {
		return nil, fmt.Errorf("listing ticket types: %w", err)
	}

	out := make([]*models.TicketType, 0, len(records))
	for _, record := range records {
		out = append(out, ticketTypeFromRecord(record))
	}
	return out, nil
}

func (s *PBStore) UpdateCounters(_ context.Context, id string, sold, reserved int) error {
	_, err := s.app.DB().NewQuery(
		"UPDATE ticket_types SET sold = {:sold}, reserved = {:reserved} WHERE id = {:id}",
	).Bind(dbx.Params{"sold": sold, "reserved": reserved, "id": id}).Execute()
	if err != nil {
		return fmt.Errorf("updating counters for %s: %w", id, err)
	}
	return nil
}

func (s *PBStore) AddRevenue(_ context.Context, id string, amount float64) error {
	_, err := s.app.DB().NewQuery(
		"UPDATE ticket_types SET revenue = revenue + {:amount} WHERE id = {:id}",
	).Bind(dbx.Params{"amount": amount, "id": id}).Execute()
	if err != nil {
		return fmt.Errorf("updating revenue for %s: %w", id, err)
	}
	return nil
}

func (s *PBStore) SaveReservation(_ context.Context, r *models.Reservation) error {
	record, err := s.app.FindFirstRecordByFilter(
		"reservations",
		"reservation_id = {:rid}",
		dbx.Params{"rid": r.ID},
	)
	if err != nil {
		collection, err := s.app.FindCollectionByNameOrId("reservations")
		if err != nil {
			return fmt.Errorf("reservations collection: %w", err)
		}
		record = core.NewRecord(collection)
	}

	record.Set("reservation_id", r.ID)
	record.Set("ticket_type_id", r.TicketTypeID)
	record.Set("purchaser_id", r.PurchaserID)
	record.Set("quantity", r.Quantity)
	record.Set("status", r.Status)
	record.Set("created_at", r.CreatedAt)
	record.Set("expires_at", r.ExpiresAt)
	if r.CommittedAt != nil {
		record.Set("committed_at", *r.CommittedAt)
	}
	if r.ReleasedAt != nil {
		record.Set("released_at", *r.ReleasedAt)
	}

	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("saving reservation %s: %w", r.ID, err)
	}
	return nil
}

func (s *PBStore) ListActiveReservations(_ context.Context) ([]*models.Reservation, error) {
	records, err := s.app.FindRecordsByFilter(
		"reservations",
		"status = 'active'",
		"-created",
		0,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active reservations: %w", err)
	}

	out := make([]*models.Reservation, 0, len(records))
	for _, record := range records {
		out = append(out, &models.Reservation{
			ID:           record.GetString("reservation_id"),
			TicketTypeID: record.GetString("ticket_type_id"),
			PurchaserID:  record.GetString("purchaser_id"),
			Quantity:     record.GetInt("quantity"),
			Status:       record.GetString("status"),
			CreatedAt:    record.GetDateTime("created_at").Time(),
			ExpiresAt:    record.GetDateTime("expires_at").Time(),
		})
	}
	return out, nil
}

func ticketTypeFromRecord(record *core.Record) *models.TicketType {
	return &models.TicketType{
		ID:              record.Id,
		EventID:         record.GetString("event_id"),
		Name:            record.GetString("name"),
		Description:     record.GetString("description"),
		UnitPrice:       record.GetFloat("unit_price"),
		VATIncluded:     record.GetBool("vat_included"),
		VATRate:         record.GetFloat("vat_rate"),
		Capacity:        record.GetInt("capacity"),
		Sold:            record.GetInt("sold"),
		Reserved:        record.GetInt("reserved"),
		MinPerPurchaser: record.GetInt("min_per_purchaser"),
		MaxPerPurchaser: record.GetInt("max_per_purchaser"),
		SalesStartAt:    record.GetDateTime("sales_start_at").Time(),
		SalesEndAt:      record.GetDateTime("sales_end_at").Time(),
		AccessLevel:     record.GetString("access_level"),
		Revenue:         record.GetFloat("revenue"),
		IsActive:        record.GetBool("is_active"),
		IsHidden:        record.GetBool("is_hidden"),
	}
}
