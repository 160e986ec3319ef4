package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

type fakeEnquiries struct {
	rows    map[uuid.UUID]*models.Enquiry
	marked  []uuid.UUID
	lastArg string
}

func (f *fakeEnquiries) InsertEnquiry(_ context.Context, e *models.Enquiry) error {
	c := *e
	f.rows[e.ID] = &c
	return nil
}

func (f *fakeEnquiries) GetEnquiry(_ context.Context, id uuid.UUID) (*models.Enquiry, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return e, nil
}

func (f *fakeEnquiries) ListEnquiries(_ context.Context, status string, _, _ int) ([]*models.Enquiry, error) {
	f.lastArg = status
	var out []*models.Enquiry
	for _, e := range f.rows {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnquiries) MarkEnquiryReplied(_ context.Context, id uuid.UUID, reply string, at time.Time) error {
	e, ok := f.rows[id]
	if !ok {
		return models.ErrNotFound
	}
	e.Status = models.EnquiryReplied
	e.Reply = reply
	e.RepliedAt = &at
	f.marked = append(f.marked, id)
	return nil
}

type fakeSubscribers struct {
	emails []string
}

func (f *fakeSubscribers) InsertSubscriber(_ context.Context, email string, _ time.Time) error {
	for _, e := range f.emails {
		if e == email {
			return models.ErrDuplicate
		}
	}
	f.emails = append(f.emails, email)
	return nil
}

func (f *fakeSubscribers) ListSubscribers(context.Context) ([]*models.NewsletterSubscriber, error) {
	out := make([]*models.NewsletterSubscriber, 0, len(f.emails))
	for _, e := range f.emails {
		out = append(out, &models.NewsletterSubscriber{Email: e})
	}
	return out, nil
}

func newEnquiryFixture() (*EnquiryService, *fakeEnquiries, *fakeSubscribers, *fakeNotifier) {
	enq := &fakeEnquiries{rows: map[uuid.UUID]*models.Enquiry{}}
	subs := &fakeSubscribers{}
	n := &fakeNotifier{failTo: map[string]bool{}}
	es := NewEnquiryService(enq, subs, n, "office@example.com", testLogger())
	es.now = fixedClock
	return es, enq, subs, n
}

func TestSubmitEnquiry(t *testing.T) {
	es, enq, _, n := newEnquiryFixture()

	e := &models.Enquiry{Name: " Kofi ", Email: "Kofi@Example.com", Message: "Do you clean offices?"}
	if err := es.Submit(context.Background(), e); err != nil {
		t.Fatalf("submit: %v", err)
	}
	stored := enq.rows[e.ID]
	if stored == nil || stored.Status != models.EnquiryNew || stored.Email != "kofi@example.com" || stored.Name != "Kofi" {
		t.Fatalf("unexpected stored enquiry %+v", stored)
	}
	if len(n.sent) != 1 || n.sent[0].To != "office@example.com" || n.sent[0].Type != models.EmailEnquiry {
		t.Fatalf("expected the business to be notified, got %+v", n.sent)
	}
}

func TestSubmitEnquiryValidation(t *testing.T) {
	es, enq, _, _ := newEnquiryFixture()

	err := es.Submit(context.Background(), &models.Enquiry{Name: "A", Email: "bad", Message: "hi"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if len(enq.rows) != 0 {
		t.Fatal("invalid enquiries must not be stored")
	}
}

func TestSubmitEnquirySurvivesNotifierFailure(t *testing.T) {
	es, enq, _, n := newEnquiryFixture()
	n.err = errStoreDown

	if err := es.Submit(context.Background(), &models.Enquiry{Name: "A", Email: "a@example.com", Message: "hi"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(enq.rows) != 1 {
		t.Fatal("enquiry must be stored even when the notification fails")
	}
}

func TestReplyMarksOnlyAfterDelivery(t *testing.T) {
	es, enq, _, n := newEnquiryFixture()
	admin := adminActor(access.CapManageEnquiries)
	id := uuid.New()
	enq.rows[id] = &models.Enquiry{ID: id, Name: "A", Email: "a@example.com", Message: "hi", Status: models.EnquiryNew}

	n.failTo["a@example.com"] = true
	err := es.Reply(context.Background(), admin, id, "Yes we do")
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if enq.rows[id].Status != models.EnquiryNew || len(enq.marked) != 0 {
		t.Fatal("enquiry must stay new when the reply is not delivered")
	}

	delete(n.failTo, "a@example.com")
	if err := es.Reply(context.Background(), admin, id, "Yes we do"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	got := enq.rows[id]
	if got.Status != models.EnquiryReplied || got.Reply != "Yes we do" || got.RepliedAt == nil {
		t.Fatalf("unexpected enquiry %+v", got)
	}
}

func TestReplyGuards(t *testing.T) {
	es, _, _, _ := newEnquiryFixture()
	ctx := context.Background()

	if err := es.Reply(ctx, adminActor(), uuid.New(), "x"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	var ve *ValidationError
	if err := es.Reply(ctx, adminActor(access.CapManageEnquiries), uuid.New(), "  "); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := es.Reply(ctx, adminActor(access.CapManageEnquiries), uuid.New(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListEnquiries(t *testing.T) {
	es, enq, _, _ := newEnquiryFixture()
	admin := adminActor(access.CapManageEnquiries)

	if _, err := es.List(context.Background(), admin, "replied", Page{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if enq.lastArg != "replied" {
		t.Fatalf("status filter not passed, got %q", enq.lastArg)
	}
	var ve *ValidationError
	if _, err := es.List(context.Background(), admin, "spam", Page{}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	es, _, subs, _ := newEnquiryFixture()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := es.Subscribe(ctx, " News@Example.com "); err != nil {
			t.Fatalf("subscribe %d: %v", i, err)
		}
	}
	if len(subs.emails) != 1 || subs.emails[0] != "news@example.com" {
		t.Fatalf("unexpected subscribers %v", subs.emails)
	}

	var ve *ValidationError
	if err := es.Subscribe(ctx, "nope"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendNewsletterCounts(t *testing.T) {
	es, _, subs, n := newEnquiryFixture()
	subs.emails = []string{"a@example.com", "b@example.com", "c@example.com"}
	n.failTo["b@example.com"] = true

	res, err := es.SendNewsletter(context.Background(), adminActor(access.CapSendNewsletter), &NewsletterInput{Subject: "Spring", Body: "Offers"})
	if err != nil {
		t.Fatalf("send newsletter: %v", err)
	}
	if res.Sent != 2 || res.Failed != 1 {
		t.Fatalf("expected 2 sent and 1 failed, got %+v", res)
	}

	if _, err := es.SendNewsletter(context.Background(), adminActor(access.CapManageEnquiries), &NewsletterInput{Subject: "x", Body: "y"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
