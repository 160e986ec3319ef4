package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

const (
	MaxPhotosPerBatch = 5
	MaxPhotoBytes     = 10 << 20
)

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type PhotoFile struct {
	Name string
	Data []byte
}

type PhotoBatchResult struct {
	Uploaded []*models.TaskPhoto `json:"uploaded"`
	Failed   []*UploadError      `json:"failed"`
}

func (e *UploadError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"file":  e.File,
		"error": e.Err.Error(),
	})
}

// UploadPhotos adds evidence photos to a booking that is being worked on or
// has been completed.
func (bs *BookingService) UploadPhotos(ctx context.Context, actor Actor, id uuid.UUID, files []PhotoFile) (*PhotoBatchResult, error) {
	if len(files) == 0 {
		return nil, &ValidationError{Field: "photos", Message: "at least one photo is required"}
	}

	b, err := bs.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	if !mayWork(actor, b) {
		return nil, ErrForbidden
	}
	if b.Status != models.StatusInProgress && b.Status != models.StatusCompleted {
		return nil, &InvalidTransitionError{From: b.Status, Action: ActionPhotograph}
	}

	return bs.uploadBatch(ctx, actor, b, files), nil
}

// uploadBatch stores at most MaxPhotosPerBatch files. Each file succeeds or
// fails on its own; the rest of the batch carries on.
func (bs *BookingService) uploadBatch(ctx context.Context, actor Actor, b *models.Booking, files []PhotoFile) *PhotoBatchResult {
	res := &PhotoBatchResult{
		Uploaded: []*models.TaskPhoto{},
		Failed:   []*UploadError{},
	}
	now := bs.now()

	for i, f := range files {
		if i >= MaxPhotosPerBatch {
			res.Failed = append(res.Failed, &UploadError{File: f.Name, Err: ErrTooManyFiles})
			continue
		}

		photo, err := bs.storePhoto(ctx, actor, b, f, fmt.Sprintf("%d", now.UnixNano()+int64(i)))
		if err != nil {
			bs.logger.Warn("task photo upload failed", "booking_id", b.ID, "file", f.Name, "error", err)
			res.Failed = append(res.Failed, &UploadError{File: f.Name, Err: err})
			continue
		}
		res.Uploaded = append(res.Uploaded, photo)
	}
	return res
}

func (bs *BookingService) storePhoto(ctx context.Context, actor Actor, b *models.Booking, f PhotoFile, stamp string) (*models.TaskPhoto, error) {
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if len(f.Data) > MaxPhotoBytes {
		return nil, fmt.Errorf("file exceeds %d MB", MaxPhotoBytes>>20)
	}
	contentType := http.DetectContentType(f.Data)
	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %s", contentType)
	}

	path := fmt.Sprintf("%s/%s/%s.%s", actor.ID, b.ID, stamp, ext)
	url, err := bs.photos.UploadObject(ctx, models.TaskPhotosBucket, path, contentType, f.Data)
	if err != nil {
		return nil, err
	}

	return bs.photos.InsertTaskPhoto(ctx, &models.TaskPhoto{
		ID:          uuid.New(),
		BookingID:   b.ID,
		UploadedBy:  actor.ID,
		PhotoURL:    url,
		StoragePath: path,
		CreatedAt:   bs.now(),
	})
}
