package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/middleware"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

// respondError maps the service error taxonomy onto HTTP statuses. Store
// failures are attached to the context for logging and reported generically.
func respondError(c *gin.Context, err error) {
	var (
		ve  *services.ValidationError
		ite *services.InvalidTransitionError
		se  *services.StoreError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse(ve.Field, ve.Message))
	case errors.As(err, &ite):
		c.JSON(http.StatusConflict, models.ErrorResponse(ite.Error()))
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse("forbidden"))
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse("not found"))
	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("session expired"))
	case errors.As(err, &se):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse("a backing service failed, please retry"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("internal server error"))
	}
}

// actor returns the authenticated caller or writes 401.
func actor(c *gin.Context) (services.Actor, bool) {
	a, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
	}
	return a, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.Trim(strings.TrimSpace(c.Param(name)), "\"'")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse(name, "invalid id format"))
		return uuid.Nil, false
	}
	return id, true
}

func pageQuery(c *gin.Context) (services.Page, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse("limit", "invalid limit parameter"))
		return services.Page{}, false
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse("offset", "invalid offset parameter"))
		return services.Page{}, false
	}
	return services.Page{Offset: offset, Limit: limit}, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse("body", "invalid request payload"))
		return false
	}
	return true
}
