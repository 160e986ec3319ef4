package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

// AdminBookings lists bookings, optionally narrowed by ?status=a,b.
func AdminBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		page, ok := pageQuery(c)
		if !ok {
			return
		}

		var statuses []models.BookingStatus
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				s, err := models.ParseBookingStatus(strings.TrimSpace(part))
				if err != nil {
					c.JSON(http.StatusBadRequest, models.FieldErrorResponse("status", err.Error()))
					return
				}
				statuses = append(statuses, s)
			}
		}

		views, err := b.AdminBookings(c.Request.Context(), a, statuses, page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(views, page.Offset, page.Limit, len(views)))
	}
}

// SetBookingStatus applies {status, reason?, hours_worked?, remarks?}.
func SetBookingStatus(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var change services.StatusChange
		if !bindJSON(c, &change) {
			return
		}

		booking, err := b.AdminSetStatus(c.Request.Context(), a, id, &change)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking status updated"))
	}
}

func AssignStaff(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req struct {
			StaffID uuid.UUID `json:"staff_id"`
		}
		if !bindJSON(c, &req) {
			return
		}

		booking, err := b.AssignStaff(c.Request.Context(), a, id, req.StaffID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Staff assigned"))
	}
}

func UpdateEstimate(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input models.EstimateInput
		if !bindJSON(c, &input) {
			return
		}

		booking, err := b.UpdateEstimate(c.Request.Context(), a, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Estimate updated"))
	}
}

func ReplaceRole(r *services.RoleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Role string `json:"role"`
		}
		if !bindJSON(c, &req) {
			return
		}

		if err := r.ReplaceRole(c.Request.Context(), a, id, req.Role); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"user_id": id, "role": req.Role}, "Role updated"))
	}
}

func CreateStaff(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		var input models.SignupInput
		if !bindJSON(c, &input) {
			return
		}

		id, err := u.CreateStaff(c.Request.Context(), a, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(gin.H{"id": id}, "Staff account created"))
	}
}
