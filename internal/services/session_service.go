package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

// touchInterval limits last_seen_at writes to one per minute per session.
const touchInterval = time.Minute

// SessionService enforces idle and absolute session lifetimes on the server.
type SessionService struct {
	store       models.SessionRepo
	idleTimeout time.Duration
	maxAge      time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewSessionService(store models.SessionRepo, idleTimeout, maxAge time.Duration, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:       store,
		idleTimeout: idleTimeout,
		maxAge:      maxAge,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start records a new session after a successful sign-in. Signing in again
// with the same identity-provider session restarts its clock.
func (ss *SessionService) Start(ctx context.Context, sessionID string, userID uuid.UUID, ip, userAgent string) (*models.Session, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Message: "is required"}
	}
	now := ss.now()
	s := &models.Session{
		ID:         sessionID,
		UserID:     userID.String(),
		IPAddress:  ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ss.maxAge),
	}

	err := ss.store.CreateSession(ctx, s)
	if errors.Is(err, models.ErrDuplicate) {
		if err := ss.store.DeleteSession(ctx, sessionID); err != nil {
			return nil, storeErr("reset session", err)
		}
		err = ss.store.CreateSession(ctx, s)
	}
	if err != nil {
		return nil, storeErr("create session", err)
	}
	return s, nil
}

// Check validates the session behind a request and refreshes its idle clock.
// Missing, foreign, idle or over-age sessions yield ErrSessionExpired.
func (ss *SessionService) Check(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" {
		return ErrSessionExpired
	}
	s, err := ss.store.GetSession(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrSessionExpired
	}
	if err != nil {
		return storeErr("get session", err)
	}
	if s.UserID != userID.String() {
		return ErrSessionExpired
	}

	now := ss.now()
	if !now.Before(s.ExpiresAt) || now.Sub(s.LastSeenAt) >= ss.idleTimeout {
		if err := ss.store.DeleteSession(ctx, sessionID); err != nil {
			ss.logger.Warn("expired session not deleted", "session_id", sessionID, "error", err)
		}
		return ErrSessionExpired
	}

	if now.Sub(s.LastSeenAt) >= touchInterval {
		if err := ss.store.TouchSession(ctx, sessionID, now); err != nil {
			ss.logger.Warn("session activity not recorded", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

func (ss *SessionService) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := ss.store.DeleteSession(ctx, sessionID); err != nil {
		return storeErr("delete session", err)
	}
	return nil
}
