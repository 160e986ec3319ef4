package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  access.Role
	Caps  access.Set
}

func (a Actor) IsAdmin() bool { return a.Role == access.RoleAdmin }
func (a Actor) IsStaff() bool { return a.Role == access.RoleStaff }

type Action string

const (
	ActionAccept   Action = "accept"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionAssign   Action = "assign"

	ActionPhotograph Action = "add photos to"
)

type transition struct {
	from  []models.BookingStatus
	to    models.BookingStatus
	stamp string
}

var transitions = map[Action]transition{
	ActionAccept: {
		from:  []models.BookingStatus{models.StatusPending},
		to:    models.StatusConfirmed,
		stamp: "task_accepted_at",
	},
	ActionStart: {
		from:  []models.BookingStatus{models.StatusConfirmed},
		to:    models.StatusInProgress,
		stamp: "task_started_at",
	},
	ActionComplete: {
		from:  []models.BookingStatus{models.StatusInProgress},
		to:    models.StatusCompleted,
		stamp: "completed_at",
	},
	ActionCancel: {
		from:  []models.BookingStatus{models.StatusPending, models.StatusConfirmed},
		to:    models.StatusCancelled,
		stamp: "cancelled_at",
	},
}

// actionOrder fixes the order actions are listed to clients.
var actionOrder = []Action{ActionAccept, ActionStart, ActionComplete, ActionCancel}

// NextStatus returns the status reached by applying action in state from.
func NextStatus(from models.BookingStatus, action Action) (models.BookingStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", &InvalidTransitionError{From: from, Action: action}
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", &InvalidTransitionError{From: from, Action: action}
}

// actionForTarget maps an admin status selection onto the guarded action
// that reaches it. Pending is never a target.
func actionForTarget(target models.BookingStatus) (Action, bool) {
	switch target {
	case models.StatusConfirmed:
		return ActionAccept, true
	case models.StatusInProgress:
		return ActionStart, true
	case models.StatusCompleted:
		return ActionComplete, true
	case models.StatusCancelled:
		return ActionCancel, true
	default:
		return "", false
	}
}

// mayWork reports whether actor may drive transitions on b. Admins need
// manage_bookings; staff need work_bookings and must be the assigned worker.
func mayWork(actor Actor, b *models.Booking) bool {
	if actor.IsAdmin() {
		return actor.Caps.Has(access.CapManageBookings)
	}
	if actor.IsStaff() {
		return actor.Caps.Has(access.CapWorkBookings) && b.IsAssignedTo(actor.ID)
	}
	return false
}

// mayView reports whether actor may read b.
func mayView(actor Actor, b *models.Booking) bool {
	if b.CustomerID == actor.ID {
		return true
	}
	return mayWork(actor, b)
}

// AvailableActions lists the transitions actor may invoke on b right now.
func AvailableActions(actor Actor, b *models.Booking) []Action {
	if !mayWork(actor, b) {
		return []Action{}
	}
	out := make([]Action, 0, len(actionOrder))
	for _, a := range actionOrder {
		if _, err := NextStatus(b.Status, a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// stampFields returns the status write for action, adding the timestamp only
// when the booking has never passed through that transition.
func stampFields(b *models.Booking, action Action, to models.BookingStatus, now time.Time) map[string]interface{} {
	fields := map[string]interface{}{"status": to}
	t := transitions[action]
	if stampOf(b, t.stamp) == nil {
		fields[t.stamp] = now
	}
	return fields
}

func stampOf(b *models.Booking, column string) *time.Time {
	switch column {
	case "task_accepted_at":
		return b.TaskAcceptedAt
	case "task_started_at":
		return b.TaskStartedAt
	case "completed_at":
		return b.CompletedAt
	case "cancelled_at":
		return b.CancelledAt
	default:
		return nil
	}
}
