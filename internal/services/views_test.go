package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

func TestCustomerBookingsDropsForeignRows(t *testing.T) {
	customer := customerActor()
	own := newBooking(customer.ID, nil, models.StatusPending)
	foreign := newBooking(uuid.New(), nil, models.StatusPending)
	f := newBookingFixture(own, foreign)
	f.bookings.leaky = true

	views, err := f.svc.CustomerBookings(context.Background(), customer, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].ID != own.ID {
		t.Fatalf("expected only the customer's booking, got %d rows", len(views))
	}
	if len(views[0].Actions) != 0 {
		t.Fatalf("customers drive no transitions, got %v", views[0].Actions)
	}
}

func TestStaffBookingsPartition(t *testing.T) {
	staff := staffActor()
	other := uuid.New()
	rows := []*models.Booking{
		newBooking(uuid.New(), &staff.ID, models.StatusPending),
		newBooking(uuid.New(), &staff.ID, models.StatusInProgress),
		newBooking(uuid.New(), &staff.ID, models.StatusCompleted),
		newBooking(uuid.New(), &staff.ID, models.StatusCancelled),
		newBooking(uuid.New(), &other, models.StatusConfirmed),
	}
	f := newBookingFixture(rows...)
	f.bookings.leaky = true

	got, err := f.svc.StaffBookings(context.Background(), staff)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got.Active) != 2 {
		t.Fatalf("expected 2 active bookings, got %d", len(got.Active))
	}
	if len(got.Completed) != 1 || got.Completed[0].ID != rows[2].ID {
		t.Fatalf("expected the completed booking, got %+v", got.Completed)
	}
	for _, v := range got.Active {
		if !v.IsAssignedTo(staff.ID) {
			t.Fatalf("booking %s is not assigned to the actor", v.ID)
		}
		if v.Status == models.StatusPending && (len(v.Actions) != 2 || v.Actions[0] != ActionAccept) {
			t.Fatalf("unexpected pending actions %v", v.Actions)
		}
		if v.Status == models.StatusInProgress && (len(v.Actions) != 1 || v.Actions[0] != ActionComplete) {
			t.Fatalf("unexpected in-progress actions %v", v.Actions)
		}
	}
}

func TestStaffBookingsRequiresWorkCapability(t *testing.T) {
	f := newBookingFixture()
	if _, err := f.svc.StaffBookings(context.Background(), customerActor()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAdminBookingsFiltersByStatus(t *testing.T) {
	admin := adminActor(access.CapManageBookings)
	f := newBookingFixture(
		newBooking(uuid.New(), nil, models.StatusPending),
		newBooking(uuid.New(), nil, models.StatusCompleted),
	)

	views, err := f.svc.AdminBookings(context.Background(), admin, []models.BookingStatus{models.StatusPending}, Page{Limit: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].Status != models.StatusPending {
		t.Fatalf("unexpected rows: %+v", views)
	}

	if _, err := f.svc.AdminBookings(context.Background(), adminActor(), nil, Page{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetBookingVisibility(t *testing.T) {
	customer := customerActor()
	staff := staffActor()
	b := newBooking(customer.ID, &staff.ID, models.StatusConfirmed)
	f := newBookingFixture(b)
	ctx := context.Background()

	if _, err := f.svc.GetBooking(ctx, customer, b.ID); err != nil {
		t.Fatalf("owner must see booking: %v", err)
	}
	view, err := f.svc.GetBooking(ctx, staff, b.ID)
	if err != nil {
		t.Fatalf("assigned staff must see booking: %v", err)
	}
	if len(view.Actions) != 2 || view.Actions[0] != ActionStart || view.Actions[1] != ActionCancel {
		t.Fatalf("unexpected actions %v", view.Actions)
	}
	if _, err := f.svc.GetBooking(ctx, customerActor(), b.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another customer, got %v", err)
	}
	if _, err := f.svc.GetBooking(ctx, staffActor(), b.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unassigned staff, got %v", err)
	}
	if _, err := f.svc.GetBooking(ctx, customer, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		in, want Page
	}{
		{Page{}, Page{Offset: 0, Limit: defaultPageSize}},
		{Page{Offset: -3, Limit: 10}, Page{Offset: 0, Limit: 10}},
		{Page{Offset: 40, Limit: 1000}, Page{Offset: 40, Limit: maxPageSize}},
	}
	for _, tc := range cases {
		if got := tc.in.normalize(); got != tc.want {
			t.Errorf("normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
