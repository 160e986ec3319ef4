package access

import (
	"errors"
	"sort"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return Role(s), nil
	default:
		return "", errors.New("unknown role: " + s)
	}
}

type Capability string

const (
	CapCreateBooking   Capability = "create_booking"
	CapWorkBookings    Capability = "work_bookings"
	CapManageBookings  Capability = "manage_bookings"
	CapManageStaff     Capability = "manage_staff"
	CapManageContent   Capability = "manage_content"
	CapManageEnquiries Capability = "manage_enquiries"
	CapSendNewsletter  Capability = "send_newsletter"
	CapManageRoles     Capability = "manage_roles"
)

var adminCapabilities = []Capability{
	CapManageBookings,
	CapManageStaff,
	CapManageContent,
	CapManageEnquiries,
	CapSendNewsletter,
	CapManageRoles,
}

// ErrMissingCapability is returned by Require when the set lacks the capability.
var ErrMissingCapability = errors.New("missing capability")

// Set is an immutable set of capabilities held by one actor.
type Set struct {
	caps map[Capability]struct{}
}

func NewSet(caps ...Capability) Set {
	s := Set{caps: make(map[Capability]struct{}, len(caps))}
	for _, c := range caps {
		s.caps[c] = struct{}{}
	}
	return s
}

// AllAdmin is the capability set of a super admin.
func AllAdmin() Set {
	return NewSet(adminCapabilities...)
}

func (s Set) Has(c Capability) bool {
	_, ok := s.caps[c]
	return ok
}

func (s Set) With(caps ...Capability) Set {
	out := NewSet(caps...)
	for c := range s.caps {
		out.caps[c] = struct{}{}
	}
	return out
}

func (s Set) Union(o Set) Set {
	out := NewSet()
	for c := range s.caps {
		out.caps[c] = struct{}{}
	}
	for c := range o.caps {
		out.caps[c] = struct{}{}
	}
	return out
}

func (s Set) List() []string {
	out := make([]string, 0, len(s.caps))
	for c := range s.caps {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// Require is the single permission gate used by services and middleware.
func Require(s Set, c Capability) error {
	if s.Has(c) {
		return nil
	}
	return &MissingError{Capability: c}
}

type MissingError struct {
	Capability Capability
}

func (e *MissingError) Error() string {
	return "missing capability " + string(e.Capability)
}

func (e *MissingError) Unwrap() error {
	return ErrMissingCapability
}

// BaseCapabilities returns what a role grants before any admin flags are applied.
func BaseCapabilities(r Role) Set {
	switch r {
	case RoleStaff:
		return NewSet(CapWorkBookings)
	case RoleCustomer:
		return NewSet(CapCreateBooking)
	default:
		return NewSet()
	}
}
