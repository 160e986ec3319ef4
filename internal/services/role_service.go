package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

type RoleService struct {
	reader models.RoleReader
	writer models.RoleWriter
	logger *slog.Logger
}

func NewRoleService(reader models.RoleReader, writer models.RoleWriter, logger *slog.Logger) *RoleService {
	return &RoleService{
		reader: reader,
		writer: writer,
		logger: logger,
	}
}

// Resolve returns the user's role and the capabilities it grants. Admins
// without a permissions row hold no admin capabilities.
func (rs *RoleService) Resolve(ctx context.Context, userID uuid.UUID) (access.Role, access.Set, error) {
	role, err := rs.reader.GetUserRole(ctx, userID)
	if err != nil {
		return "", access.Set{}, storeErr("get user role", err)
	}
	caps := access.BaseCapabilities(role)
	if role != access.RoleAdmin {
		return role, caps, nil
	}

	perms, err := rs.reader.GetAdminPermissions(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		rs.logger.Warn("admin has no permission row", "user_id", userID)
		return role, caps, nil
	}
	if err != nil {
		return "", access.Set{}, storeErr("get admin permissions", err)
	}
	return role, caps.Union(perms.Capabilities()), nil
}

// ReplaceRole swaps the user's role row inside one transaction so the user
// is never left without a role.
func (rs *RoleService) ReplaceRole(ctx context.Context, actor Actor, userID uuid.UUID, role string) error {
	if err := require(actor, access.CapManageRoles); err != nil {
		return err
	}
	if userID == actor.ID {
		return &ValidationError{Field: "user_id", Message: "admins cannot change their own role"}
	}
	return rs.setRole(ctx, actor, userID, role)
}

func (rs *RoleService) setRole(ctx context.Context, actor Actor, userID uuid.UUID, role string) error {
	if userID == uuid.Nil {
		return &ValidationError{Field: "user_id", Message: "is required"}
	}
	r, err := access.ParseRole(role)
	if err != nil {
		return &ValidationError{Field: "role", Message: err.Error()}
	}

	err = rs.writer.WithRoleTx(ctx, func(tx models.RoleTx) error {
		if err := tx.DeleteRoles(ctx, userID); err != nil {
			return err
		}
		return tx.InsertRole(ctx, userID, r)
	})
	if err != nil {
		return storeErr("replace role", err)
	}

	rs.logger.Info("role replaced", "user_id", userID, "role", r, "actor_id", actor.ID)
	return nil
}
