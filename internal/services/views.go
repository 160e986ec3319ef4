package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BookingView is a booking plus the actions the viewer may take on it.
type BookingView struct {
	*models.Booking
	Actions []Action `json:"actions"`
}

type StaffBookings struct {
	Active    []BookingView `json:"active"`
	Completed []BookingView `json:"completed"`
}

type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// CustomerBookings lists the actor's own bookings. The customer id always
// comes from the session.
func (bs *BookingService) CustomerBookings(ctx context.Context, actor Actor, page Page) ([]BookingView, error) {
	page = page.normalize()
	filter := models.BookingFilter{
		CustomerID: &actor.ID,
		Offset:     page.Offset,
		Limit:      page.Limit,
	}
	return bs.list(ctx, actor, filter)
}

// StaffBookings lists bookings assigned to the actor, split into active and
// completed. Cancelled bookings are left out.
func (bs *BookingService) StaffBookings(ctx context.Context, actor Actor) (*StaffBookings, error) {
	if err := require(actor, access.CapWorkBookings); err != nil {
		return nil, err
	}
	filter := models.BookingFilter{
		StaffID: &actor.ID,
		Statuses: []models.BookingStatus{
			models.StatusPending,
			models.StatusConfirmed,
			models.StatusInProgress,
			models.StatusCompleted,
		},
	}
	views, err := bs.list(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	out := &StaffBookings{Active: []BookingView{}, Completed: []BookingView{}}
	for _, v := range views {
		switch {
		case v.Status.IsActive():
			out.Active = append(out.Active, v)
		case v.Status == models.StatusCompleted:
			out.Completed = append(out.Completed, v)
		}
	}
	return out, nil
}

// AdminBookings lists every booking, optionally narrowed by status.
func (bs *BookingService) AdminBookings(ctx context.Context, actor Actor, statuses []models.BookingStatus, page Page) ([]BookingView, error) {
	if err := require(actor, access.CapManageBookings); err != nil {
		return nil, err
	}
	page = page.normalize()
	filter := models.BookingFilter{
		Statuses: statuses,
		Offset:   page.Offset,
		Limit:    page.Limit,
	}
	return bs.list(ctx, actor, filter)
}

func (bs *BookingService) GetBooking(ctx context.Context, actor Actor, id uuid.UUID) (*BookingView, error) {
	b, err := bs.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	if !mayView(actor, b) {
		return nil, ErrForbidden
	}
	return &BookingView{Booking: b, Actions: AvailableActions(actor, b)}, nil
}

func (bs *BookingService) BookingPhotos(ctx context.Context, actor Actor, id uuid.UUID) ([]*models.TaskPhoto, error) {
	if _, err := bs.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}
	photos, err := bs.photos.ListTaskPhotos(ctx, id)
	if err != nil {
		return nil, storeErr("list task photos", err)
	}
	return photos, nil
}

// list runs filter and then re-applies it, with the actor's visibility, to
// every returned row. Rows that fail either check are dropped and logged.
func (bs *BookingService) list(ctx context.Context, actor Actor, filter models.BookingFilter) ([]BookingView, error) {
	rows, err := bs.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}

	out := make([]BookingView, 0, len(rows))
	dropped := 0
	for _, b := range rows {
		if !filter.Matches(b) || !mayView(actor, b) {
			dropped++
			continue
		}
		out = append(out, BookingView{Booking: b, Actions: AvailableActions(actor, b)})
	}
	if dropped > 0 {
		bs.logger.Warn("dropped bookings outside actor scope", "actor_id", actor.ID, "count", dropped)
	}
	return out, nil
}
