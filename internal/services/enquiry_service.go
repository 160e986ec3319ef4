package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

type NewsletterInput struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=20000"`
}

type NewsletterResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type EnquiryService struct {
	enquiries     models.EnquiryRepo
	subscribers   models.NewsletterRepo
	notifier      Notifier
	businessEmail string
	logger        *slog.Logger
	now           func() time.Time
}

func NewEnquiryService(
	enquiries models.EnquiryRepo,
	subscribers models.NewsletterRepo,
	notifier Notifier,
	businessEmail string,
	logger *slog.Logger,
) *EnquiryService {
	return &EnquiryService{
		enquiries:     enquiries,
		subscribers:   subscribers,
		notifier:      notifier,
		businessEmail: businessEmail,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a public contact-form enquiry and forwards it to the
// business inbox.
func (es *EnquiryService) Submit(ctx context.Context, e *models.Enquiry) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(strings.ToLower(e.Email))
	e.Message = strings.TrimSpace(e.Message)
	if err := models.Validate.Struct(e); err != nil {
		return validationErr(err)
	}

	e.ID = uuid.New()
	e.Status = models.EnquiryNew
	e.CreatedAt = es.now()
	if err := es.enquiries.InsertEnquiry(ctx, e); err != nil {
		return storeErr("insert enquiry", err)
	}

	if es.businessEmail == "" {
		return nil
	}
	err := es.notifier.Send(ctx, &models.EmailPayload{
		Type: models.EmailEnquiry,
		To:   es.businessEmail,
		Data: map[string]interface{}{
			"enquiry_id": e.ID,
			"name":       e.Name,
			"email":      e.Email,
			"phone":      e.Phone,
			"message":    e.Message,
		},
	})
	if err != nil {
		es.logger.Warn("enquiry notification not sent", "enquiry_id", e.ID, "error", err)
	}
	return nil
}

func (es *EnquiryService) List(ctx context.Context, actor Actor, status string, page Page) ([]*models.Enquiry, error) {
	if err := require(actor, access.CapManageEnquiries); err != nil {
		return nil, err
	}
	if status != "" && status != models.EnquiryNew && status != models.EnquiryReplied {
		return nil, &ValidationError{Field: "status", Message: "must be new or replied"}
	}
	page = page.normalize()
	rows, err := es.enquiries.ListEnquiries(ctx, status, page.Offset, page.Limit)
	if err != nil {
		return nil, storeErr("list enquiries", err)
	}
	return rows, nil
}

// Reply e-mails the enquirer and marks the enquiry replied. Nothing is
// marked if the e-mail is not accepted.
func (es *EnquiryService) Reply(ctx context.Context, actor Actor, id uuid.UUID, message string) error {
	if err := require(actor, access.CapManageEnquiries); err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return &ValidationError{Field: "message", Message: "is required"}
	}

	e, err := es.enquiries.GetEnquiry(ctx, id)
	if err != nil {
		return storeErr("get enquiry", err)
	}

	err = es.notifier.Send(ctx, &models.EmailPayload{
		Type: models.EmailReply,
		To:   e.Email,
		Data: map[string]interface{}{
			"name":             e.Name,
			"original_message": e.Message,
			"reply":            message,
		},
	})
	if err != nil {
		return &StoreError{Op: "send reply", Err: err}
	}

	if err := es.enquiries.MarkEnquiryReplied(ctx, id, message, es.now()); err != nil {
		return storeErr("mark enquiry replied", err)
	}
	return nil
}

// Subscribe adds an address to the newsletter. Subscribing twice is not an error.
func (es *EnquiryService) Subscribe(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	err := es.subscribers.InsertSubscriber(ctx, email, es.now())
	if errors.Is(err, models.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return storeErr("insert subscriber", err)
	}
	return nil
}

// SendNewsletter mails every subscriber individually and reports the counts.
func (es *EnquiryService) SendNewsletter(ctx context.Context, actor Actor, input *NewsletterInput) (*NewsletterResult, error) {
	if err := require(actor, access.CapSendNewsletter); err != nil {
		return nil, err
	}
	if err := models.Validate.Struct(input); err != nil {
		return nil, validationErr(err)
	}

	subs, err := es.subscribers.ListSubscribers(ctx)
	if err != nil {
		return nil, storeErr("list subscribers", err)
	}

	res := &NewsletterResult{}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := es.notifier.Send(ctx, &models.EmailPayload{
			Type: models.EmailNewsletter,
			To:   sub.Email,
			Data: map[string]interface{}{
				"subject": input.Subject,
				"body":    input.Body,
			},
		})
		if err != nil {
			res.Failed++
			es.logger.Warn("newsletter not delivered", "email", sub.Email, "error", err)
			continue
		}
		res.Sent++
	}

	es.logger.Info("newsletter sent", "sent", res.Sent, "failed", res.Failed, "actor_id", actor.ID)
	return res, nil
}
