package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/helpers"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
	"github.com/supabase-community/gotrue-go/types"
)

const claimsKey = "user"

type TokenValidator interface {
	Validate(token string) (*helpers.CustomClaims, error)
}

type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
}

type SessionChecker interface {
	Check(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type RoleResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (access.Role, access.Set, error)
}

// AuthConfig wires the collaborators AuthMiddleware needs.
type AuthConfig struct {
	Tokens       TokenValidator
	Refresher    TokenRefresher
	Sessions     SessionChecker
	Roles        RoleResolver
	SecureCookie bool
	Logger       *slog.Logger
}

// AuthMiddleware verifies the access token cookie, refreshing it when it has
// expired, enforces the server-side session and resolves the caller's role
// and capabilities from the database.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token, err := c.Cookie(helpers.AccessTokenCookie)
		if err != nil || token == "" {
			abort(c, http.StatusUnauthorized, "JWT token not found in cookie")
			return
		}

		claims, err := cfg.Tokens.Validate(token)
		if err != nil {
			refreshToken, refreshErr := c.Cookie(helpers.RefreshTokenCookie)
			if refreshErr != nil || refreshToken == "" {
				abort(c, http.StatusUnauthorized, "Unauthorized access")
				return
			}

			res, refreshErr := cfg.Refresher.RefreshToken(ctx, refreshToken)
			if refreshErr != nil || res == nil || res.AccessToken == "" {
				cfg.Logger.Warn("Token refresh failed", "error", refreshErr)
				abort(c, http.StatusUnauthorized, "Token expired and refresh failed")
				return
			}
			helpers.SetAuthCookies(c, res, cfg.SecureCookie)

			token = res.AccessToken
			claims, err = cfg.Tokens.Validate(token)
			if err != nil {
				abort(c, http.StatusUnauthorized, "Refreshed token validation failed")
				return
			}
			cfg.Logger.Debug("Token refreshed", "user_id", claims.Subject)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid user ID in token")
			return
		}

		// Lookups below run as the caller so row-level policies apply.
		ctx = models.WithAccessToken(ctx, token)

		if err := cfg.Sessions.Check(ctx, claims.SessionID, userID); err != nil {
			if errors.Is(err, services.ErrSessionExpired) {
				helpers.ClearAuthCookies(c, cfg.SecureCookie)
				abort(c, http.StatusUnauthorized, "session expired")
				return
			}
			_ = c.Error(err)
			abort(c, http.StatusBadGateway, "session store unavailable")
			return
		}

		role, caps, err := cfg.Roles.Resolve(ctx, userID)
		if err != nil {
			_ = c.Error(err)
			abort(c, http.StatusBadGateway, "role lookup failed")
			return
		}

		SetClaims(c, &helpers.EnhancedClaims{
			CustomClaims: claims,
			UserID:       userID,
			Email:        claims.Email,
			SessionID:    claims.SessionID,
			Role:         role,
			Capabilities: caps,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireCapability rejects callers whose resolved capabilities lack capability.
func RequireCapability(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := access.Require(claims.Capabilities, capability); err != nil {
			abort(c, http.StatusForbidden, err.Error())
			return
		}
		c.Next()
	}
}

// SetClaims stores the request identity for Claims and RequireCapability.
func SetClaims(c *gin.Context, claims *helpers.EnhancedClaims) {
	c.Set(claimsKey, claims)
}

// Claims returns the identity AuthMiddleware stored on the context.
func Claims(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*helpers.EnhancedClaims)
	return claims, ok
}

// Actor converts the request identity into a service actor.
func Actor(c *gin.Context) (services.Actor, bool) {
	claims, ok := Claims(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  claims.Role,
		Caps:  claims.Capabilities,
	}, true
}
