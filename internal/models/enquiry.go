package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

const (
	EnquiriesTable   = "enquiries"
	NewsletterTable  = "newsletter_subscribers"
	EnquiryNew       = "new"
	EnquiryReplied   = "replied"
	defaultPageLimit = 20
)

type Enquiry struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name" validate:"required,max=120"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     string     `json:"phone" validate:"omitempty,max=40"`
	Message   string     `json:"message" validate:"required,max=5000"`
	Status    string     `json:"status"`
	Reply     string     `json:"reply"`
	RepliedAt *time.Time `json:"replied_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type NewsletterSubscriber struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

type EnquiryRepo interface {
	InsertEnquiry(ctx context.Context, e *Enquiry) error
	GetEnquiry(ctx context.Context, id uuid.UUID) (*Enquiry, error)
	ListEnquiries(ctx context.Context, status string, offset, limit int) ([]*Enquiry, error)
	MarkEnquiryReplied(ctx context.Context, id uuid.UUID, reply string, at time.Time) error
}

type NewsletterRepo interface {
	// InsertSubscriber returns ErrDuplicate when the address is already subscribed.
	InsertSubscriber(ctx context.Context, email string, at time.Time) error
	ListSubscribers(ctx context.Context) ([]*NewsletterSubscriber, error)
}

func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}

func (su *SupabaseRepo) InsertEnquiry(ctx context.Context, e *Enquiry) error {
	client, err := su.clientFor(ctx)
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %v", err)
	}

	row := map[string]interface{}{
		"id":         e.ID,
		"name":       e.Name,
		"email":      e.Email,
		"phone":      e.Phone,
		"message":    e.Message,
		"status":     EnquiryNew,
		"created_at": e.CreatedAt,
	}
	// Anonymous visitors cannot read enquiries back, so ask for no representation.
	if _, _, err := client.From(EnquiriesTable).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to insert enquiry: %v", err)
	}
	return nil
}

func (su *SupabaseRepo) GetEnquiry(ctx context.Context, id uuid.UUID) (*Enquiry, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(EnquiriesTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get enquiry: %v", err)
	}

	var rows []*Enquiry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enquiry: %v", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (su *SupabaseRepo) ListEnquiries(ctx context.Context, status string, offset, limit int) ([]*Enquiry, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}

	q := client.From(EnquiriesTable).Select("*", "", false)
	if status != "" {
		q = q.Eq("status", status)
	}
	raw, _, err := q.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(offset, offset+limit-1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %v", err)
	}

	var rows []*Enquiry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enquiries: %v", err)
	}
	return rows, nil
}

func (su *SupabaseRepo) MarkEnquiryReplied(ctx context.Context, id uuid.UUID, reply string, at time.Time) error {
	client, err := su.clientFor(ctx)
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(EnquiriesTable).
		Update(map[string]interface{}{
			"status":     EnquiryReplied,
			"reply":      reply,
			"replied_at": at,
		}, "representation", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update enquiry: %v", err)
	}

	var rows []*Enquiry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("failed to unmarshal enquiry: %v", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (su *SupabaseRepo) InsertSubscriber(ctx context.Context, email string, at time.Time) error {
	client, err := su.clientFor(ctx)
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %v", err)
	}

	row := map[string]interface{}{
		"email":         email,
		"subscribed_at": at,
	}
	if _, _, err := client.From(NewsletterTable).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert subscriber: %v", err)
	}
	return nil
}

func (su *SupabaseRepo) ListSubscribers(ctx context.Context) ([]*NewsletterSubscriber, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(NewsletterTable).
		Select("email,subscribed_at", "", false).
		Order("subscribed_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %v", err)
	}

	var rows []*NewsletterSubscriber
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscribers: %v", err)
	}
	return rows, nil
}
