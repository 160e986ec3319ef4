package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/database"
)

const (
	UserRolesTable        = "user_roles"
	AdminPermissionsTable = "admin_permissions"
)

type AdminPermissions struct {
	UserID             uuid.UUID `json:"user_id"`
	IsSuperAdmin       bool      `json:"is_super_admin"`
	CanManageBookings  bool      `json:"can_manage_bookings"`
	CanManageStaff     bool      `json:"can_manage_staff"`
	CanManageContent   bool      `json:"can_manage_content"`
	CanManageEnquiries bool      `json:"can_manage_enquiries"`
	CanSendNewsletter  bool      `json:"can_send_newsletter"`
	CanManageRoles     bool      `json:"can_manage_roles"`
}

// Capabilities converts the stored flags into a capability set.
func (p AdminPermissions) Capabilities() access.Set {
	if p.IsSuperAdmin {
		return access.AllAdmin()
	}
	var caps []access.Capability
	flags := []struct {
		on  bool
		cap access.Capability
	}{
		{p.CanManageBookings, access.CapManageBookings},
		{p.CanManageStaff, access.CapManageStaff},
		{p.CanManageContent, access.CapManageContent},
		{p.CanManageEnquiries, access.CapManageEnquiries},
		{p.CanSendNewsletter, access.CapSendNewsletter},
		{p.CanManageRoles, access.CapManageRoles},
	}
	for _, f := range flags {
		if f.on {
			caps = append(caps, f.cap)
		}
	}
	return access.NewSet(caps...)
}

type RoleReader interface {
	// GetUserRole returns RoleCustomer when the user has no role row.
	GetUserRole(ctx context.Context, userID uuid.UUID) (access.Role, error)
	GetAdminPermissions(ctx context.Context, userID uuid.UUID) (*AdminPermissions, error)
}

type RoleTx interface {
	DeleteRoles(ctx context.Context, userID uuid.UUID) error
	InsertRole(ctx context.Context, userID uuid.UUID, role access.Role) error
}

type RoleWriter interface {
	WithRoleTx(ctx context.Context, fn func(tx RoleTx) error) error
}

func (su *SupabaseRepo) GetUserRole(ctx context.Context, userID uuid.UUID) (access.Role, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(UserRolesTable).
		Select("role", "", false).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return "", fmt.Errorf("failed to get user role: %v", err)
	}

	var rows []struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return "", fmt.Errorf("failed to unmarshal role rows: %v", err)
	}
	switch len(rows) {
	case 0:
		return access.RoleCustomer, nil
	case 1:
		return access.ParseRole(rows[0].Role)
	default:
		return "", fmt.Errorf("multiple roles found for user %s", userID)
	}
}

func (su *SupabaseRepo) GetAdminPermissions(ctx context.Context, userID uuid.UUID) (*AdminPermissions, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(AdminPermissionsTable).
		Select("*", "", false).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get admin permissions: %v", err)
	}

	var rows []AdminPermissions
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admin permissions: %v", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// PgRoleRepo writes role rows over a direct Postgres connection so that
// delete and insert share one transaction.
type PgRoleRepo struct {
	pool *pgxpool.Pool
}

func NewPgRoleRepo(pool *pgxpool.Pool) *PgRoleRepo {
	return &PgRoleRepo{pool: pool}
}

func (r *PgRoleRepo) WithRoleTx(ctx context.Context, fn func(tx RoleTx) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(pgRoleTx{tx: tx})
	})
}

type pgRoleTx struct {
	tx pgx.Tx
}

func (t pgRoleTx) DeleteRoles(ctx context.Context, userID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	return err
}

func (t pgRoleTx) InsertRole(ctx context.Context, userID uuid.UUID, role access.Role) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, string(role))
	return err
}
