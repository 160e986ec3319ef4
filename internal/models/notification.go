package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	EmailLogsColName  = "email_logs"
	SendEmailFunction = "send-email"
)

type EmailType string

const (
	EmailBookingConfirmation EmailType = "booking-confirmation"
	EmailEnquiry             EmailType = "enquiry"
	EmailNewsletter          EmailType = "newsletter"
	EmailReply               EmailType = "reply"
	EmailAccountCreated      EmailType = "account-created"
	EmailWorkAssigned        EmailType = "work-assigned"
)

// EmailPayload is the body accepted by the send-email edge function.
type EmailPayload struct {
	Type EmailType              `json:"type"`
	To   string                 `json:"to"`
	CC   []string               `json:"cc,omitempty"`
	Data map[string]interface{} `json:"data"`
}

type EmailLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type      EmailType          `bson:"type" json:"type"`
	To        string             `bson:"to" json:"to"`
	CC        []string           `bson:"cc,omitempty" json:"cc,omitempty"`
	Status    string             `bson:"status" json:"status"`
	Error     string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

const (
	EmailSent   = "sent"
	EmailFailed = "failed"
)

type Mailer interface {
	SendEmail(ctx context.Context, payload *EmailPayload) error
}

type EmailLogRepo interface {
	InsertEmailLog(ctx context.Context, log *EmailLog) error
}

// EdgeFunctionMailer posts email payloads to a Supabase edge function.
type EdgeFunctionMailer struct {
	baseURL string
	key     string
	client  *http.Client
}

func NewEdgeFunctionMailer(supabaseURL, key string, timeout time.Duration) *EdgeFunctionMailer {
	return &EdgeFunctionMailer{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/functions/v1/",
		key:     key,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (m *EdgeFunctionMailer) SendEmail(ctx context.Context, payload *EmailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+SendEmailFunction, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %v", err)
	}

	token := AccessTokenFromContext(ctx)
	if token == "" {
		token = m.key
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", m.key)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %v", SendEmailFunction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", SendEmailFunction, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (mdb *MongodbRepo) InsertEmailLog(ctx context.Context, log *EmailLog) error {
	col, err := mdb.GetCollection(EmailLogsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("error inserting email log: %v", err)
	}
	return nil
}
