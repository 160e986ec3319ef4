package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

var errStoreDown = errors.New("store unavailable")

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time { return fixedNow }

// fakeBookings is an in-memory BookingRepo. Writes are merged through JSON so
// column names behave as they do against the real store.
type fakeBookings struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]*models.Booking
	events []*models.BookingStatusEvent
	calls  []string

	// leaky makes ListBookings ignore the filter.
	leaky        bool
	updateErrs   []error
	beforeUpdate func(b *models.Booking)
	eventErr     error
}

func newFakeBookings(rows ...*models.Booking) *fakeBookings {
	f := &fakeBookings{rows: map[uuid.UUID]*models.Booking{}}
	for _, b := range rows {
		f.rows[b.ID] = b
	}
	return f
}

func (f *fakeBookings) record(op string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f.calls = append(f.calls, op+":"+strings.Join(keys, ","))
}

func (f *fakeBookings) updates() []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "update") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBookings) nextUpdateErr() error {
	if len(f.updateErrs) == 0 {
		return nil
	}
	err := f.updateErrs[0]
	f.updateErrs = f.updateErrs[1:]
	return err
}

func clone(b *models.Booking) *models.Booking {
	c := *b
	return &c
}

func merge(b *models.Booking, fields map[string]interface{}) (*models.Booking, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range fields {
		m[k] = v
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out models.Booking
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *fakeBookings) CreateBooking(_ context.Context, b *models.Booking) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	f.rows[b.ID] = clone(b)
	return clone(b), nil
}

func (f *fakeBookings) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "get")
	b, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(b), nil
}

func (f *fakeBookings) ListBookings(_ context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	var out []*models.Booking
	for _, b := range f.rows {
		if f.leaky || filter.Matches(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBookings) UpdateBooking(_ context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update", fields)
	if err := f.nextUpdateErr(); err != nil {
		return nil, err
	}
	b, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	updated, err := merge(b, fields)
	if err != nil {
		return nil, err
	}
	f.rows[id] = updated
	return clone(updated), nil
}

func (f *fakeBookings) UpdateBookingIfStatus(_ context.Context, id uuid.UUID, from models.BookingStatus, fields map[string]interface{}) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update_if_"+string(from), fields)
	if err := f.nextUpdateErr(); err != nil {
		return nil, err
	}
	b, ok := f.rows[id]
	if !ok {
		return nil, models.ErrStatusChanged
	}
	if f.beforeUpdate != nil {
		f.beforeUpdate(b)
	}
	if b.Status != from {
		return nil, models.ErrStatusChanged
	}
	updated, err := merge(b, fields)
	if err != nil {
		return nil, err
	}
	f.rows[id] = updated
	return clone(updated), nil
}

func (f *fakeBookings) InsertStatusEvent(_ context.Context, e *models.BookingStatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeBookings) get(id uuid.UUID) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.rows[id])
}

type fakePhotos struct {
	mu       sync.Mutex
	paths    []string
	rows     []*models.TaskPhoto
	failCall map[int]bool
	calls    int
}

func (f *fakePhotos) UploadObject(_ context.Context, bucket, path, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failCall[f.calls] {
		return "", errStoreDown
	}
	f.paths = append(f.paths, path)
	return "https://storage.example/" + bucket + "/" + path, nil
}

func (f *fakePhotos) InsertTaskPhoto(_ context.Context, p *models.TaskPhoto) (*models.TaskPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, p)
	return p, nil
}

func (f *fakePhotos) ListTaskPhotos(_ context.Context, bookingID uuid.UUID) ([]*models.TaskPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TaskPhoto
	for _, p := range f.rows {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeRoles stores role rows as a list per user so tests can observe zero or
// duplicate rows. With atomic unset, WithRoleTx keeps partial writes.
type fakeRoles struct {
	mu        sync.Mutex
	rows      map[uuid.UUID][]access.Role
	perms     map[uuid.UUID]*models.AdminPermissions
	atomic    bool
	insertErr error
}

func newFakeRoles(atomic bool) *fakeRoles {
	return &fakeRoles{
		rows:   map[uuid.UUID][]access.Role{},
		perms:  map[uuid.UUID]*models.AdminPermissions{},
		atomic: atomic,
	}
}

func (f *fakeRoles) set(id uuid.UUID, r access.Role) {
	f.rows[id] = []access.Role{r}
}

func (f *fakeRoles) count(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[id])
}

func (f *fakeRoles) GetUserRole(_ context.Context, id uuid.UUID) (access.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[id]
	switch len(rows) {
	case 0:
		return access.RoleCustomer, nil
	case 1:
		return rows[0], nil
	default:
		return "", fmt.Errorf("multiple roles for %s", id)
	}
}

func (f *fakeRoles) GetAdminPermissions(_ context.Context, id uuid.UUID) (*models.AdminPermissions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.perms[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (f *fakeRoles) WithRoleTx(_ context.Context, fn func(tx models.RoleTx) error) error {
	f.mu.Lock()
	snapshot := map[uuid.UUID][]access.Role{}
	for k, v := range f.rows {
		snapshot[k] = append([]access.Role(nil), v...)
	}
	f.mu.Unlock()

	err := fn(fakeRoleTx{f: f})
	if err != nil && f.atomic {
		f.mu.Lock()
		f.rows = snapshot
		f.mu.Unlock()
	}
	return err
}

type fakeRoleTx struct {
	f *fakeRoles
}

func (t fakeRoleTx) DeleteRoles(_ context.Context, id uuid.UUID) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	delete(t.f.rows, id)
	return nil
}

func (t fakeRoleTx) InsertRole(_ context.Context, id uuid.UUID, r access.Role) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.f.insertErr != nil {
		return t.f.insertErr
	}
	t.f.rows[id] = append(t.f.rows[id], r)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*models.EmailPayload
	err  error
	// failTo fails delivery to these addresses only.
	failTo map[string]bool
}

func (f *fakeNotifier) Send(_ context.Context, p *models.EmailPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil || f.failTo[p.To] {
		return errStoreDown
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakeUsers struct {
	profiles  map[uuid.UUID]*models.Profile
	signupErr error
	signups   []models.SignupInput
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{profiles: map[uuid.UUID]*models.Profile{}}
}

func (f *fakeUsers) SignUp(_ context.Context, in models.SignupInput) (uuid.UUID, error) {
	if f.signupErr != nil {
		return uuid.Nil, f.signupErr
	}
	f.signups = append(f.signups, in)
	id := uuid.New()
	f.profiles[id] = &models.Profile{ID: id, Email: in.Email, FullName: in.FullName}
	return id, nil
}

func (f *fakeUsers) AuthenticateUser(context.Context, string, string) (*types.TokenResponse, error) {
	return &types.TokenResponse{}, nil
}

func (f *fakeUsers) RefreshToken(context.Context, string) (*types.TokenResponse, error) {
	return &types.TokenResponse{}, nil
}

func (f *fakeUsers) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func customerActor() Actor {
	return Actor{
		ID:    uuid.New(),
		Email: "customer@example.com",
		Role:  access.RoleCustomer,
		Caps:  access.BaseCapabilities(access.RoleCustomer),
	}
}

func staffActor() Actor {
	return Actor{
		ID:    uuid.New(),
		Email: "staff@example.com",
		Role:  access.RoleStaff,
		Caps:  access.BaseCapabilities(access.RoleStaff),
	}
}

func adminActor(caps ...access.Capability) Actor {
	return Actor{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Role:  access.RoleAdmin,
		Caps:  access.NewSet(caps...),
	}
}

func newBooking(customer uuid.UUID, staff *uuid.UUID, status models.BookingStatus) *models.Booking {
	date, _ := models.ParseDate("2026-03-20")
	return &models.Booking{
		ID:             uuid.New(),
		CustomerID:     customer,
		StaffID:        staff,
		ServiceType:    "deep_clean",
		PropertyType:   "apartment",
		ServiceAddress: "12 High Street",
		PreferredDate:  date,
		Status:         status,
		CreatedAt:      fixedNow.Add(-time.Hour),
		UpdatedAt:      fixedNow.Add(-time.Hour),
	}
}
