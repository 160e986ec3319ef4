package helpers

import (
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
)

// EnhancedClaims is the verified identity placed on the request context.
// Role and Capabilities come from the database, never from the token.
type EnhancedClaims struct {
	*CustomClaims
	UserID       uuid.UUID   `json:"id"`
	Email        string      `json:"email,omitempty"`
	SessionID    string      `json:"session_id,omitempty"`
	Role         access.Role `json:"role"`
	Capabilities access.Set  `json:"-"`
}

func (ec *EnhancedClaims) IsAdmin() bool {
	return ec.Role == access.RoleAdmin
}

func (ec *EnhancedClaims) IsStaff() bool {
	return ec.Role == access.RoleStaff
}

func (ec *EnhancedClaims) Can(c access.Capability) bool {
	return ec.Capabilities.Has(c)
}
