package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

const (
	maxHoursWorked     = 9999.99
	maxRemarksLength   = 2000
	maxCancelReasonLen = 500
)

// Notifier sends one templated e-mail.
type Notifier interface {
	Send(ctx context.Context, payload *models.EmailPayload) error
}

type ProfileReader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// BookingService is the single entry point for booking mutations. Every
// status change goes through the transition table in lifecycle.go.
type BookingService struct {
	bookings      models.BookingRepo
	photos        models.PhotoRepo
	roles         models.RoleReader
	profiles      ProfileReader
	notifier      Notifier
	businessEmail string
	logger        *slog.Logger
	now           func() time.Time
}

func NewBookingService(
	bookings models.BookingRepo,
	photos models.PhotoRepo,
	roles models.RoleReader,
	profiles ProfileReader,
	notifier Notifier,
	businessEmail string,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		bookings:      bookings,
		photos:        photos,
		roles:         roles,
		profiles:      profiles,
		notifier:      notifier,
		businessEmail: businessEmail,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (bs *BookingService) CreateBooking(ctx context.Context, actor Actor, input *models.BookingInput) (*models.Booking, error) {
	if err := require(actor, access.CapCreateBooking); err != nil {
		return nil, err
	}
	if err := models.Validate.Struct(input); err != nil {
		return nil, validationErr(err)
	}

	date, err := models.ParseDate(input.PreferredDate)
	if err != nil {
		return nil, &ValidationError{Field: "preferred_date", Message: err.Error()}
	}
	now := bs.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return nil, &ValidationError{Field: "preferred_date", Message: "must not be in the past"}
	}

	booking := &models.Booking{
		ID:             uuid.New(),
		CustomerID:     actor.ID,
		ServiceType:    strings.TrimSpace(input.ServiceType),
		PropertyType:   strings.TrimSpace(input.PropertyType),
		ServiceAddress: strings.TrimSpace(input.ServiceAddress),
		PreferredDate:  date,
		Status:         models.StatusPending,
		Notes:          strings.TrimSpace(input.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Coordinates != nil {
		lat, lng := input.Coordinates.Latitude, input.Coordinates.Longitude
		booking.Latitude = &lat
		booking.Longitude = &lng
	}

	created, err := bs.bookings.CreateBooking(ctx, booking)
	if err != nil {
		return nil, storeErr("create booking", err)
	}

	payload := &models.EmailPayload{
		Type: models.EmailBookingConfirmation,
		To:   actor.Email,
		Data: map[string]interface{}{
			"booking_id":      created.ID,
			"service_type":    created.ServiceType,
			"property_type":   created.PropertyType,
			"service_address": created.ServiceAddress,
			"preferred_date":  created.PreferredDate.String(),
		},
	}
	if bs.businessEmail != "" {
		payload.CC = []string{bs.businessEmail}
	}
	if err := bs.notifier.Send(ctx, payload); err != nil {
		bs.logger.Warn("booking confirmation not sent", "booking_id", created.ID, "error", err)
	}

	return created, nil
}

func (bs *BookingService) Accept(ctx context.Context, actor Actor, id uuid.UUID) (*models.Booking, error) {
	return bs.transition(ctx, actor, id, ActionAccept, nil)
}

func (bs *BookingService) Start(ctx context.Context, actor Actor, id uuid.UUID) (*models.Booking, error) {
	return bs.transition(ctx, actor, id, ActionStart, nil)
}

func (bs *BookingService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxCancelReasonLen {
		return nil, &ValidationError{Field: "reason", Message: fmt.Sprintf("must be at most %d characters", maxCancelReasonLen)}
	}
	return bs.transition(ctx, actor, id, ActionCancel, map[string]interface{}{"cancellation_reason": reason})
}

// CompletionInput is what staff submit to finish a job. HoursWorked is kept
// as the raw form value so parsing errors can be reported on the field.
type CompletionInput struct {
	HoursWorked string
	Remarks     string
	Photos      []PhotoFile
}

type CompletionResult struct {
	Booking *models.Booking   `json:"booking"`
	Photos  *PhotoBatchResult `json:"photos,omitempty"`
}

// ParseHoursWorked accepts a positive decimal number of hours.
func ParseHoursWorked(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: "hours_worked", Message: "must be a number"}
	}
	if v <= 0 {
		return 0, &ValidationError{Field: "hours_worked", Message: "must be greater than zero"}
	}
	if v > maxHoursWorked {
		return 0, &ValidationError{Field: "hours_worked", Message: fmt.Sprintf("must be at most %.2f", maxHoursWorked)}
	}
	return v, nil
}

// Complete captures hours and remarks, then moves the booking to completed.
// The capture write must succeed before the transition is attempted. Photos
// are uploaded once the booking is completed and never block it.
func (bs *BookingService) Complete(ctx context.Context, actor Actor, id uuid.UUID, input CompletionInput) (*CompletionResult, error) {
	hours, err := ParseHoursWorked(input.HoursWorked)
	if err != nil {
		return nil, err
	}
	remarks := strings.TrimSpace(input.Remarks)
	if len(remarks) > maxRemarksLength {
		return nil, &ValidationError{Field: "remarks", Message: fmt.Sprintf("must be at most %d characters", maxRemarksLength)}
	}

	b, err := bs.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	if !mayWork(actor, b) {
		return nil, ErrForbidden
	}
	if _, err := NextStatus(b.Status, ActionComplete); err != nil {
		return nil, err
	}

	captured, err := bs.bookings.UpdateBookingIfStatus(ctx, b.ID, models.StatusInProgress, map[string]interface{}{
		"staff_hours_worked": hours,
		"actual_hours":       hours,
		"staff_remarks":      remarks,
	})
	if errors.Is(err, models.ErrStatusChanged) {
		return nil, &InvalidTransitionError{From: b.Status, Action: ActionComplete}
	}
	if err != nil {
		return nil, storeErr("save completion details", err)
	}

	completed, err := bs.apply(ctx, actor, captured, ActionComplete, nil)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Booking: completed}
	if len(input.Photos) > 0 {
		result.Photos = bs.uploadBatch(ctx, actor, completed, input.Photos)
	}
	return result, nil
}

// StatusChange is an admin status selection. HoursWorked and Remarks are read
// only when the target is completed.
type StatusChange struct {
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	HoursWorked string `json:"hours_worked"`
	Remarks     string `json:"remarks"`
}

// AdminSetStatus is the admin status selector. The chosen status is reached
// through the same guarded action staff would use. Completing with
// HoursWorked runs the full completion capture.
func (bs *BookingService) AdminSetStatus(ctx context.Context, actor Actor, id uuid.UUID, change *StatusChange) (*models.Booking, error) {
	if err := require(actor, access.CapManageBookings); err != nil {
		return nil, err
	}
	status, err := models.ParseBookingStatus(strings.TrimSpace(change.Status))
	if err != nil {
		return nil, &ValidationError{Field: "status", Message: err.Error()}
	}
	action, ok := actionForTarget(status)
	if !ok {
		return nil, &ValidationError{Field: "status", Message: "a booking cannot be moved back to pending"}
	}

	if action == ActionComplete && strings.TrimSpace(change.HoursWorked) != "" {
		res, err := bs.Complete(ctx, actor, id, CompletionInput{
			HoursWorked: change.HoursWorked,
			Remarks:     change.Remarks,
		})
		if err != nil {
			return nil, err
		}
		return res.Booking, nil
	}

	b, err := bs.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("get booking", err)
	}

	var extra map[string]interface{}
	switch action {
	case ActionComplete:
		if b.Status == models.StatusInProgress && (b.StaffHoursWorked == nil || *b.StaffHoursWorked <= 0) {
			return nil, &ValidationError{Field: "hours_worked", Message: "hours worked are required to complete a booking"}
		}
	case ActionCancel:
		reason := strings.TrimSpace(change.Reason)
		if len(reason) > maxCancelReasonLen {
			return nil, &ValidationError{Field: "reason", Message: fmt.Sprintf("must be at most %d characters", maxCancelReasonLen)}
		}
		extra = map[string]interface{}{"cancellation_reason": reason}
	}

	return bs.apply(ctx, actor, b, action, extra)
}

func (bs *BookingService) AssignStaff(ctx context.Context, actor Actor, id, staffID uuid.UUID) (*models.Booking, error) {
	if err := require(actor, access.CapManageBookings); err != nil {
		return nil, err
	}
	if staffID == uuid.Nil {
		return nil, &ValidationError{Field: "staff_id", Message: "is required"}
	}

	role, err := bs.roles.GetUserRole(ctx, staffID)
	if err != nil {
		return nil, storeErr("get staff role", err)
	}
	if role != access.RoleStaff {
		return nil, &ValidationError{Field: "staff_id", Message: "user is not a staff member"}
	}

	b, err := bs.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	if b.Status.IsTerminal() {
		return nil, &InvalidTransitionError{From: b.Status, Action: ActionAssign}
	}

	updated, err := bs.bookings.UpdateBookingIfStatus(ctx, b.ID, b.Status, map[string]interface{}{"staff_id": staffID})
	if errors.Is(err, models.ErrStatusChanged) {
		return nil, &InvalidTransitionError{From: b.Status, Action: ActionAssign}
	}
	if err != nil {
		return nil, storeErr("assign staff", err)
	}

	profile, err := bs.profiles.GetProfile(ctx, staffID)
	if err != nil {
		bs.logger.Warn("work assignment not sent, staff profile unavailable", "staff_id", staffID, "error", err)
		return updated, nil
	}
	payload := &models.EmailPayload{
		Type: models.EmailWorkAssigned,
		To:   profile.Email,
		Data: map[string]interface{}{
			"staff_name":      profile.FullName,
			"booking_id":      updated.ID,
			"service_type":    updated.ServiceType,
			"service_address": updated.ServiceAddress,
			"preferred_date":  updated.PreferredDate.String(),
		},
	}
	if err := bs.notifier.Send(ctx, payload); err != nil {
		bs.logger.Warn("work assignment not sent", "booking_id", updated.ID, "error", err)
	}
	return updated, nil
}

func (bs *BookingService) UpdateEstimate(ctx context.Context, actor Actor, id uuid.UUID, input *models.EstimateInput) (*models.Booking, error) {
	if err := require(actor, access.CapManageBookings); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.EstimatedCost != nil {
		if input.EstimatedCost.IsNegative() {
			return nil, &ValidationError{Field: "estimated_cost", Message: "must not be negative"}
		}
		fields["estimated_cost"] = input.EstimatedCost.Round(2)
	}
	if input.ActualCost != nil {
		if input.ActualCost.IsNegative() {
			return nil, &ValidationError{Field: "actual_cost", Message: "must not be negative"}
		}
		fields["actual_cost"] = input.ActualCost.Round(2)
	}
	if input.EstimatedHours != nil {
		if *input.EstimatedHours < 0 || math.IsNaN(*input.EstimatedHours) {
			return nil, &ValidationError{Field: "estimated_hours", Message: "must not be negative"}
		}
		fields["estimated_hours"] = *input.EstimatedHours
	}
	if len(fields) == 0 {
		return nil, &ValidationError{Field: "body", Message: "no estimate fields supplied"}
	}

	updated, err := bs.bookings.UpdateBooking(ctx, id, fields)
	if err != nil {
		return nil, storeErr("update estimate", err)
	}
	return updated, nil
}

func (bs *BookingService) transition(ctx context.Context, actor Actor, id uuid.UUID, action Action, extra map[string]interface{}) (*models.Booking, error) {
	b, err := bs.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	return bs.apply(ctx, actor, b, action, extra)
}

// apply performs one guarded transition as a compare-and-set on status.
func (bs *BookingService) apply(ctx context.Context, actor Actor, b *models.Booking, action Action, extra map[string]interface{}) (*models.Booking, error) {
	if !mayWork(actor, b) {
		return nil, ErrForbidden
	}
	to, err := NextStatus(b.Status, action)
	if err != nil {
		return nil, err
	}

	now := bs.now()
	fields := stampFields(b, action, to, now)
	for k, v := range extra {
		fields[k] = v
	}

	updated, err := bs.bookings.UpdateBookingIfStatus(ctx, b.ID, b.Status, fields)
	if errors.Is(err, models.ErrStatusChanged) {
		return nil, &InvalidTransitionError{From: b.Status, Action: action}
	}
	if err != nil {
		return nil, storeErr("update booking status", err)
	}

	event := &models.BookingStatusEvent{
		ID:         uuid.New(),
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   to,
		ActorID:    actor.ID,
		CreatedAt:  now,
	}
	if err := bs.bookings.InsertStatusEvent(ctx, event); err != nil {
		bs.logger.Warn("status history not recorded", "booking_id", b.ID, "to", to, "error", err)
	}

	bs.logger.Info("booking status changed", "booking_id", b.ID, "from", b.Status, "to", to, "actor_id", actor.ID)
	return updated, nil
}
