package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

const (
	BookingsTable     = "bookings"
	TaskPhotosTable   = "task_photos"
	StatusEventsTable = "booking_status_events"

	bookingColumns = "id,customer_id,staff_id,service_type,property_type,service_address,latitude,longitude," +
		"preferred_date,status,task_accepted_at,task_started_at,completed_at,cancelled_at,cancellation_reason," +
		"estimated_cost,actual_cost,estimated_hours,actual_hours,staff_hours_worked,staff_remarks,notes," +
		"created_at,updated_at"
)

func decodeBookings(raw []byte) ([]*Booking, error) {
	var bookings []*Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal booking rows: %v", err)
	}
	return bookings, nil
}

func (su *SupabaseRepo) CreateBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	row := map[string]interface{}{
		"id":              booking.ID,
		"customer_id":     booking.CustomerID,
		"service_type":    booking.ServiceType,
		"property_type":   booking.PropertyType,
		"service_address": booking.ServiceAddress,
		"latitude":        booking.Latitude,
		"longitude":       booking.Longitude,
		"preferred_date":  booking.PreferredDate.String(),
		"status":          booking.Status,
		"notes":           booking.Notes,
		"created_at":      booking.CreatedAt,
		"updated_at":      booking.UpdatedAt,
	}

	raw, _, err := client.From(BookingsTable).
		Insert(row, false, "", "representation", "exact").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to insert booking: %v", err)
	}

	created, err := decodeBookings(raw)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no booking returned after insert")
	}
	return created[0], nil
}

func (su *SupabaseRepo) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, status, err := client.From(BookingsTable).
		Select(bookingColumns, "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		if status != 0 {
			return nil, fmt.Errorf("postgrest error: status=%d body=%s err=%v", status, string(raw), err)
		}
		return nil, fmt.Errorf("failed to get booking: %v", err)
	}

	bookings, err := decodeBookings(raw)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, ErrNotFound
	}
	return bookings[0], nil
}

func (su *SupabaseRepo) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	query := client.From(BookingsTable).Select(bookingColumns, "exact", false)
	if filter.CustomerID != nil {
		query = query.Eq("customer_id", filter.CustomerID.String())
	}
	if filter.StaffID != nil {
		query = query.Eq("staff_id", filter.StaffID.String())
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.In("status", statuses)
	}
	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if filter.Limit > 0 {
		query = query.Range(filter.Offset, filter.Offset+filter.Limit-1, "")
	}

	raw, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %v", err)
	}
	return decodeBookings(raw)
}

func (su *SupabaseRepo) UpdateBooking(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*Booking, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	fields["updated_at"] = time.Now().UTC()
	raw, _, err := client.From(BookingsTable).
		Update(fields, "representation", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %v", err)
	}

	updated, err := decodeBookings(raw)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrNotFound
	}
	return updated[0], nil
}

func (su *SupabaseRepo) UpdateBookingIfStatus(ctx context.Context, id uuid.UUID, from BookingStatus, fields map[string]interface{}) (*Booking, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	fields["updated_at"] = time.Now().UTC()
	raw, _, err := client.From(BookingsTable).
		Update(fields, "representation", "exact").
		Eq("id", id.String()).
		Eq("status", string(from)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %v", err)
	}

	updated, err := decodeBookings(raw)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrStatusChanged
	}
	return updated[0], nil
}

func (su *SupabaseRepo) InsertStatusEvent(ctx context.Context, event *BookingStatusEvent) error {
	client, err := su.clientFor(ctx)
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %v", err)
	}

	_, _, err = client.From(StatusEventsTable).
		Insert(map[string]interface{}{
			"booking_id":  event.BookingID,
			"from_status": event.FromStatus,
			"to_status":   event.ToStatus,
			"actor_id":    event.ActorID,
			"created_at":  event.CreatedAt,
		}, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert status event: %v", err)
	}
	return nil
}
