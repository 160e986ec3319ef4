package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

const (
	// Surplus files are streamed past and reported by name, so they only count
	// against the body limit.
	maxSurplusPhotos = 3 * services.MaxPhotosPerBatch
	maxUploadBody    = (services.MaxPhotosPerBatch+maxSurplusPhotos)*services.MaxPhotoBytes + 1<<20
	maxFieldBytes    = 16 << 10
)

func StaffBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		lists, err := b.StaffBookings(c.Request.Context(), a)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(lists, ""))
	}
}

func AcceptBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		booking, err := b.Accept(c.Request.Context(), a, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking accepted"))
	}
}

func StartBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		booking, err := b.Start(c.Request.Context(), a, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Work started"))
	}
}

func CancelBooking(b *services.BookingService) gin.HandlerFunc {
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
			Reason string `json:"reason"`
		}
		// The reason is optional, so an empty body is fine.
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}

		booking, err := b.Cancel(c.Request.Context(), a, id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking cancelled"))
	}
}

// CompleteBooking reads the completion form: hours_worked, remarks and up to
// five photos.
func CompleteBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		form, ok := readUpload(c)
		if !ok {
			return
		}

		res, err := b.Complete(c.Request.Context(), a, id, services.CompletionInput{
			HoursWorked: form.value("hours_worked"),
			Remarks:     form.value("remarks"),
			Photos:      form.photos,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(res, "Booking completed"))
	}
}

func UploadTaskPhotos(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		form, ok := readUpload(c)
		if !ok {
			return
		}
		photos := form.photos

		res, err := b.UploadPhotos(c.Request.Context(), a, id, photos)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusCreated
		if len(res.Uploaded) == 0 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, models.SuccessResponse(res, fmt.Sprintf("%d of %d photos uploaded", len(res.Uploaded), len(photos))))
	}
}

type uploadForm struct {
	values map[string]string
	photos []services.PhotoFile
}

func (f *uploadForm) value(key string) string {
	return f.values[key]
}

func isPhotoField(name string) bool {
	return name == "photos" || name == "photos[]"
}

// readUpload streams a multipart body. The first MaxPhotosPerBatch files under
// photos or photos[] are read; later files are drained and passed on by name
// only so the service can report them. Text fields keep their first value.
func readUpload(c *gin.Context) (*uploadForm, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse("body", "expected a multipart form"))
		return nil, false
	}

	form := &uploadForm{values: map[string]string{}}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			uploadFailed(c, err)
			return nil, false
		}
		err = form.readPart(part)
		part.Close()
		if err != nil {
			uploadFailed(c, err)
			return nil, false
		}
	}
	return form, true
}

func (f *uploadForm) readPart(part *multipart.Part) error {
	name := part.FormName()
	switch {
	case isPhotoField(name) && part.FileName() != "":
		if len(f.photos) >= services.MaxPhotosPerBatch {
			f.photos = append(f.photos, services.PhotoFile{Name: part.FileName()})
			_, err := io.Copy(io.Discard, part)
			return err
		}
		// One byte over the limit is enough for the service to reject it.
		data, err := io.ReadAll(io.LimitReader(part, services.MaxPhotoBytes+1))
		if err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, part); err != nil {
			return err
		}
		f.photos = append(f.photos, services.PhotoFile{Name: part.FileName(), Data: data})
	case part.FileName() == "":
		v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		if err != nil {
			return err
		}
		if _, seen := f.values[name]; !seen {
			f.values[name] = string(v)
		}
	default:
		_, err := io.Copy(io.Discard, part)
		return err
	}
	return nil
}

func uploadFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, models.FieldErrorResponse("body",
			fmt.Sprintf("upload exceeds %d MB", maxUploadBody>>20)))
		return
	}
	c.JSON(http.StatusBadRequest, models.FieldErrorResponse("body", "malformed multipart form"))
}
