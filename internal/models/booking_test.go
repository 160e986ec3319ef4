package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
)

func TestParseBookingStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "in_progress", "completed", "cancelled"} {
		if _, err := ParseBookingStatus(s); err != nil {
			t.Errorf("%s: unexpected error %v", s, err)
		}
	}
	for _, s := range []string{"", "Pending", "done", "in-progress"} {
		if _, err := ParseBookingStatus(s); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}

func TestDateTruncatesTimestamps(t *testing.T) {
	var row struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2026-03-14T00:00:00+00:00"}`), &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.Date.String() != "2026-03-14" {
		t.Fatalf("expected 2026-03-14, got %s", row.Date)
	}

	out, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"date":"2026-03-14"}` {
		t.Fatalf("unexpected encoding %s", out)
	}

	if _, err := ParseDate("14/03/2026"); err == nil {
		t.Fatal("expected non ISO dates to be rejected")
	}
}

func TestBookingNullDecimals(t *testing.T) {
	raw := `{"id":"` + uuid.NewString() + `","status":"pending","preferred_date":"2026-03-14",` +
		`"estimated_cost":"120.50","actual_cost":null}`

	var b Booking
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !b.EstimatedCost.Valid || b.EstimatedCost.Decimal.StringFixed(2) != "120.50" {
		t.Fatalf("unexpected estimated cost %+v", b.EstimatedCost)
	}
	if b.ActualCost.Valid {
		t.Fatal("expected a null actual cost")
	}
}

func TestBookingFilterMatches(t *testing.T) {
	customer := uuid.New()
	staff := uuid.New()
	b := &Booking{CustomerID: customer, StaffID: &staff, Status: StatusConfirmed}

	other := uuid.New()
	cases := []struct {
		name   string
		filter BookingFilter
		want   bool
	}{
		{"empty", BookingFilter{}, true},
		{"customer", BookingFilter{CustomerID: &customer}, true},
		{"other customer", BookingFilter{CustomerID: &other}, false},
		{"staff", BookingFilter{StaffID: &staff}, true},
		{"other staff", BookingFilter{StaffID: &other}, false},
		{"status", BookingFilter{Statuses: []BookingStatus{StatusPending, StatusConfirmed}}, true},
		{"wrong status", BookingFilter{Statuses: []BookingStatus{StatusCompleted}}, false},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(b); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	unassigned := &Booking{CustomerID: customer, Status: StatusPending}
	if (BookingFilter{StaffID: &staff}).Matches(unassigned) {
		t.Fatal("unassigned booking must not match a staff filter")
	}
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := Validate.Struct(&BookingInput{PropertyType: "flat", ServiceAddress: "1 Main St", PreferredDate: "2026-03-14"})

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 {
		t.Fatalf("expected one validation error, got %v", err)
	}
	if verrs[0].Field() != "service_type" {
		t.Fatalf("expected service_type, got %s", verrs[0].Field())
	}
}

func TestAdminPermissionsCapabilities(t *testing.T) {
	super := AdminPermissions{IsSuperAdmin: true}.Capabilities()
	if !super.Has(access.CapManageRoles) || !super.Has(access.CapSendNewsletter) {
		t.Fatal("super admin should hold every admin capability")
	}

	partial := AdminPermissions{CanManageBookings: true, CanManageContent: true}.Capabilities()
	if !partial.Has(access.CapManageBookings) || !partial.Has(access.CapManageContent) {
		t.Fatal("expected the flagged capabilities")
	}
	if partial.Has(access.CapManageRoles) || partial.Has(access.CapManageStaff) {
		t.Fatal("unflagged capabilities must not be granted")
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !isDuplicateKey(errors.New(`(23505) duplicate key value violates unique constraint`)) {
		t.Fatal("expected unique violation to be detected")
	}
	if isDuplicateKey(errors.New("connection reset")) {
		t.Fatal("unexpected duplicate detection")
	}
}
