package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/helpers"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

var ErrWeakPassword = &ValidationError{
	Field:   "password",
	Message: "must be at least 8 characters with upper and lower case letters, a digit and a symbol",
}

// Me is the signed-in user's identity as returned by GET /me.
type Me struct {
	Profile      *models.Profile `json:"profile"`
	Role         access.Role     `json:"role"`
	Capabilities []string        `json:"capabilities"`
}

type UserService struct {
	userRepo models.UserRepo
	roles    *RoleService
	notifier Notifier
	logger   *slog.Logger
}

func NewUserService(userRepo models.UserRepo, roles *RoleService, notifier Notifier, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		roles:    roles,
		notifier: notifier,
		logger:   logger,
	}
}

func (us *UserService) SignUp(ctx context.Context, input *models.SignupInput) (uuid.UUID, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	if err := models.Validate.Struct(input); err != nil {
		return uuid.Nil, validationErr(err)
	}
	if !helpers.IsPasswordStrong(input.Password) {
		return uuid.Nil, ErrWeakPassword
	}

	id, err := us.userRepo.SignUp(ctx, *input)
	if errors.Is(err, models.ErrDuplicate) {
		return uuid.Nil, &ValidationError{Field: "email", Message: "an account with this email already exists"}
	}
	if err != nil {
		return uuid.Nil, storeErr("sign up", err)
	}
	return id, nil
}

func (us *UserService) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return nil, &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if err := models.Validate.Var(password, "required"); err != nil {
		return nil, &ValidationError{Field: "password", Message: "is required"}
	}
	res, err := us.userRepo.AuthenticateUser(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return res, nil
}

func (us *UserService) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	res, err := us.userRepo.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return res, nil
}

func (us *UserService) Me(ctx context.Context, actor Actor) (*Me, error) {
	profile, err := us.userRepo.GetProfile(ctx, actor.ID)
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	return &Me{
		Profile:      profile,
		Role:         actor.Role,
		Capabilities: actor.Caps.List(),
	}, nil
}

// CreateStaff opens a staff account on behalf of an admin and e-mails the
// new member their sign-in details.
func (us *UserService) CreateStaff(ctx context.Context, actor Actor, input *models.SignupInput) (uuid.UUID, error) {
	if err := require(actor, access.CapManageStaff); err != nil {
		return uuid.Nil, err
	}

	id, err := us.SignUp(ctx, input)
	if err != nil {
		return uuid.Nil, err
	}
	if err := us.roles.setRole(ctx, actor, id, string(access.RoleStaff)); err != nil {
		return uuid.Nil, err
	}

	err = us.notifier.Send(ctx, &models.EmailPayload{
		Type: models.EmailAccountCreated,
		To:   input.Email,
		Data: map[string]interface{}{
			"full_name": input.FullName,
			"email":     input.Email,
			"role":      access.RoleStaff,
		},
	})
	if err != nil {
		us.logger.Warn("account created email not sent", "user_id", id, "error", err)
	}
	return id, nil
}
