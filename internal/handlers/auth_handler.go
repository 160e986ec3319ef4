package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/helpers"
	"github.com/joshua-takyi/cleanbook/internal/middleware"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

func SignUp(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.SignupInput
		if !bindJSON(c, &input) {
			return
		}

		id, err := u.SignUp(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(gin.H{"id": id}, "account created, check your email to confirm"))
	}
}

// Login signs in with email and password, opens a server-side session keyed
// by the token's session id and sets the auth cookies.
func Login(u *services.UserService, tokens middleware.TokenValidator, sessions *services.SessionService, secure bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !bindJSON(c, &req) {
			return
		}

		res, err := u.AuthenticateUser(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			logger.Info("sign in rejected", "error", err)
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("invalid email or password"))
			return
		}

		claims, err := tokens.Validate(res.AccessToken)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, models.ErrorResponse("identity provider returned an invalid token"))
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.JSON(http.StatusBadGateway, models.ErrorResponse("identity provider returned an invalid token"))
			return
		}

		if _, err := sessions.Start(c.Request.Context(), claims.SessionID, userID, c.ClientIP(), c.Request.UserAgent()); err != nil {
			respondError(c, err)
			return
		}

		helpers.SetAuthCookies(c, res, secure)
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"user": res.User}, "signed in"))
	}
}

// Logout ends the server-side session when the token still identifies one,
// then clears the cookies either way.
func Logout(tokens middleware.TokenValidator, sessions *services.SessionService, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(helpers.AccessTokenCookie); err == nil && token != "" {
			if claims, err := tokens.Validate(token); err == nil {
				if err := sessions.End(c.Request.Context(), claims.SessionID); err != nil {
					_ = c.Error(err)
				}
			}
		}

		helpers.ClearAuthCookies(c, secure)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Logged out successfully"))
	}
}

func Me(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		me, err := u.Me(c.Request.Context(), a)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(me, ""))
	}
}
