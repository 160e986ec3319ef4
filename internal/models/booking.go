package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return BookingStatus(s), nil
	default:
		return "", fmt.Errorf("unknown booking status: %s", s)
	}
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

// Date is a calendar day stored in a Postgres date column.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	// Some PostgREST versions return timestamps for date casts.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Coordinates struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type Booking struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	StaffID    *uuid.UUID `json:"staff_id"`

	ServiceType    string   `json:"service_type"`
	PropertyType   string   `json:"property_type"`
	ServiceAddress string   `json:"service_address"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	PreferredDate  Date     `json:"preferred_date"`

	Status             BookingStatus `json:"status"`
	TaskAcceptedAt     *time.Time    `json:"task_accepted_at"`
	TaskStartedAt      *time.Time    `json:"task_started_at"`
	CompletedAt        *time.Time    `json:"completed_at"`
	CancelledAt        *time.Time    `json:"cancelled_at"`
	CancellationReason string        `json:"cancellation_reason"`

	EstimatedCost    decimal.NullDecimal `json:"estimated_cost"`
	ActualCost       decimal.NullDecimal `json:"actual_cost"`
	EstimatedHours   *float64            `json:"estimated_hours"`
	ActualHours      *float64            `json:"actual_hours"`
	StaffHoursWorked *float64            `json:"staff_hours_worked"`
	StaffRemarks     string              `json:"staff_remarks"`
	Notes            string              `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAssignedTo reports whether staffID is the booking's assigned worker.
func (b *Booking) IsAssignedTo(staffID uuid.UUID) bool {
	return b.StaffID != nil && *b.StaffID == staffID
}

// BookingInput is the customer's booking request.
type BookingInput struct {
	ServiceType    string       `json:"service_type" validate:"required,max=80"`
	PropertyType   string       `json:"property_type" validate:"required,max=80"`
	ServiceAddress string       `json:"service_address" validate:"required,max=300"`
	Coordinates    *Coordinates `json:"coordinates"`
	PreferredDate  string       `json:"preferred_date" validate:"required"`
	Notes          string       `json:"notes" validate:"max=2000"`
}

// EstimateInput carries admin edits to the financial fields. Nil means unchanged.
type EstimateInput struct {
	EstimatedCost  *decimal.Decimal `json:"estimated_cost"`
	EstimatedHours *float64         `json:"estimated_hours"`
	ActualCost     *decimal.Decimal `json:"actual_cost"`
}

type TaskPhoto struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	PhotoURL    string    `json:"photo_url"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

type BookingStatusEvent struct {
	ID         uuid.UUID     `json:"id"`
	BookingID  uuid.UUID     `json:"booking_id"`
	FromStatus BookingStatus `json:"from_status"`
	ToStatus   BookingStatus `json:"to_status"`
	ActorID    uuid.UUID     `json:"actor_id"`
	CreatedAt  time.Time     `json:"created_at"`
}

// BookingFilter narrows a booking query. Zero values mean "no constraint".
type BookingFilter struct {
	CustomerID *uuid.UUID
	StaffID    *uuid.UUID
	Statuses   []BookingStatus
	Offset     int
	Limit      int
}

// Matches applies the filter predicate to an already fetched row.
func (f BookingFilter) Matches(b *Booking) bool {
	if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
		return false
	}
	if f.StaffID != nil && !b.IsAssignedTo(*f.StaffID) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, booking *Booking) (*Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, error)
	UpdateBooking(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*Booking, error)
	// UpdateBookingIfStatus applies fields only while the row still has status from.
	// It returns ErrStatusChanged when no row matched.
	UpdateBookingIfStatus(ctx context.Context, id uuid.UUID, from BookingStatus, fields map[string]interface{}) (*Booking, error)
	InsertStatusEvent(ctx context.Context, event *BookingStatusEvent) error
}

type PhotoRepo interface {
	UploadObject(ctx context.Context, bucket, path, contentType string, data []byte) (string, error)
	InsertTaskPhoto(ctx context.Context, photo *TaskPhoto) (*TaskPhoto, error)
	ListTaskPhotos(ctx context.Context, bookingID uuid.UUID) ([]*TaskPhoto, error)
}
