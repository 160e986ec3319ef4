package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/cleanbook/internal/models"
)

var emailTypes = map[models.EmailType]bool{
	models.EmailBookingConfirmation: true,
	models.EmailEnquiry:             true,
	models.EmailNewsletter:          true,
	models.EmailReply:               true,
	models.EmailAccountCreated:      true,
	models.EmailWorkAssigned:        true,
}

type NotificationService struct {
	mailer models.Mailer
	logs   models.EmailLogRepo
	logger *slog.Logger
	now    func() time.Time
}

func NewNotificationService(mailer models.Mailer, logs models.EmailLogRepo, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		mailer: mailer,
		logs:   logs,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Send validates and delivers one e-mail and records the outcome. The
// returned error only says whether delivery was accepted.
func (ns *NotificationService) Send(ctx context.Context, payload *models.EmailPayload) error {
	if !emailTypes[payload.Type] {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown email type %q", payload.Type)}
	}
	if err := models.Validate.Var(payload.To, "required,email"); err != nil {
		return &ValidationError{Field: "to", Message: "must be a valid email address"}
	}
	for _, cc := range payload.CC {
		if err := models.Validate.Var(cc, "email"); err != nil {
			return &ValidationError{Field: "cc", Message: fmt.Sprintf("%q is not a valid email address", cc)}
		}
	}
	if payload.Data == nil {
		payload.Data = map[string]interface{}{}
	}

	sendErr := ns.mailer.SendEmail(ctx, payload)

	entry := &models.EmailLog{
		Type:      payload.Type,
		To:        payload.To,
		CC:        payload.CC,
		Status:    models.EmailSent,
		CreatedAt: ns.now(),
	}
	if sendErr != nil {
		entry.Status = models.EmailFailed
		entry.Error = sendErr.Error()
	}
	if err := ns.logs.InsertEmailLog(ctx, entry); err != nil {
		ns.logger.Warn("email log not written", "type", payload.Type, "error", err)
	}

	if sendErr != nil {
		return fmt.Errorf("send %s email: %w", payload.Type, sendErr)
	}
	return nil
}
