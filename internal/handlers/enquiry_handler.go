package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

func SubmitEnquiry(e *services.EnquiryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var enquiry models.Enquiry
		if !bindJSON(c, &enquiry) {
			return
		}
		if err := e.Submit(c.Request.Context(), &enquiry); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(gin.H{"id": enquiry.ID}, "Thanks, we will be in touch"))
	}
}

func Subscribe(e *services.EnquiryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if !bindJSON(c, &req) {
			return
		}
		if err := e.Subscribe(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Subscribed"))
	}
}

func ListEnquiries(e *services.EnquiryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		page, ok := pageQuery(c)
		if !ok {
			return
		}

		rows, err := e.List(c.Request.Context(), a, c.Query("status"), page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(rows, page.Offset, page.Limit, len(rows)))
	}
}

func ReplyEnquiry(e *services.EnquiryService) gin.HandlerFunc {
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
			Message string `json:"message"`
		}
		if !bindJSON(c, &req) {
			return
		}

		if err := e.Reply(c.Request.Context(), a, id, req.Message); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Reply sent"))
	}
}

func SendNewsletter(e *services.EnquiryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		var input services.NewsletterInput
		if !bindJSON(c, &input) {
			return
		}

		res, err := e.SendNewsletter(c.Request.Context(), a, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(res, "Newsletter sent"))
	}
}
