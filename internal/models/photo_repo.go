package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"
)

const TaskPhotosBucket = "task-photos"

// UploadObject stores data in a Supabase storage bucket and returns its public URL.
func (su *SupabaseRepo) UploadObject(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create authenticated client: %v", err)
	}

	upsert := false
	_, err = client.Storage.UploadFile(bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %v", path, err)
	}

	public := client.Storage.GetPublicUrl(bucket, path)
	if public.SignedURL == "" {
		return "", fmt.Errorf("no public url returned for %s", path)
	}
	return public.SignedURL, nil
}

func (su *SupabaseRepo) InsertTaskPhoto(ctx context.Context, photo *TaskPhoto) (*TaskPhoto, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(TaskPhotosTable).
		Insert(map[string]interface{}{
			"id":           photo.ID,
			"booking_id":   photo.BookingID,
			"uploaded_by":  photo.UploadedBy,
			"photo_url":    photo.PhotoURL,
			"storage_path": photo.StoragePath,
			"created_at":   photo.CreatedAt,
		}, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to insert task photo: %v", err)
	}

	var created []*TaskPhoto
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task photo: %v", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no task photo returned after insert")
	}
	return created[0], nil
}

func (su *SupabaseRepo) ListTaskPhotos(ctx context.Context, bookingID uuid.UUID) ([]*TaskPhoto, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(TaskPhotosTable).
		Select("*", "", false).
		Eq("booking_id", bookingID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list task photos: %v", err)
	}

	var photos []*TaskPhoto
	if err := json.Unmarshal(raw, &photos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task photos: %v", err)
	}
	return photos, nil
}
