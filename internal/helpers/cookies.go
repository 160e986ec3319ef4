package helpers

import (
	"github.com/gin-gonic/gin"
	"github.com/supabase-community/gotrue-go/types"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	refreshTokenMaxAge = 3600 * 24 * 30
)

// SetAuthCookies stores the token pair as http-only cookies on the current domain.
func SetAuthCookies(c *gin.Context, res *types.TokenResponse, secure bool) {
	c.SetCookie(AccessTokenCookie, res.AccessToken, res.ExpiresIn, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, res.RefreshToken, refreshTokenMaxAge, "/", "", secure, true)
}

func ClearAuthCookies(c *gin.Context, secure bool) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}
