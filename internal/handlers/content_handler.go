package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

const maxContentImageBytes = 8 << 20

func GetContent(cs *services.ContentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		block, err := cs.Published(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(block, ""))
	}
}

func ListContent(cs *services.ContentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		blocks, err := cs.List(c.Request.Context(), a)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(blocks, ""))
	}
}

func SaveContent(cs *services.ContentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		var input services.ContentInput
		if !bindJSON(c, &input) {
			return
		}

		block, err := cs.Save(c.Request.Context(), a, c.Param("slug"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(block, "Content saved"))
	}
}

func UploadContentImage(cs *services.ContentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.FieldErrorResponse("image", "an image file is required"))
			return
		}
		if fh.Size > maxContentImageBytes {
			c.JSON(http.StatusBadRequest, models.FieldErrorResponse("image", "image exceeds 8 MB"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.FieldErrorResponse("image", "could not read image"))
			return
		}
		defer f.Close()

		block, err := cs.UploadImage(c.Request.Context(), a, c.Param("slug"), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(block, "Image uploaded"))
	}
}
