package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

const SiteContentTable = "site_content"

// SiteContent is one editable block of the public site, addressed by slug.
type SiteContent struct {
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ImageURL  string     `json:"image_url"`
	Published bool       `json:"published"`
	UpdatedBy *uuid.UUID `json:"updated_by"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ContentRepo interface {
	GetContent(ctx context.Context, slug string) (*SiteContent, error)
	ListContent(ctx context.Context) ([]*SiteContent, error)
	UpsertContent(ctx context.Context, c *SiteContent) (*SiteContent, error)
}

func (su *SupabaseRepo) GetContent(ctx context.Context, slug string) (*SiteContent, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(SiteContentTable).
		Select("*", "", false).
		Eq("slug", slug).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %v", err)
	}

	var rows []*SiteContent
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %v", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (su *SupabaseRepo) ListContent(ctx context.Context) ([]*SiteContent, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(SiteContentTable).
		Select("*", "", false).
		Order("slug", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %v", err)
	}

	var rows []*SiteContent
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %v", err)
	}
	return rows, nil
}

func (su *SupabaseRepo) UpsertContent(ctx context.Context, c *SiteContent) (*SiteContent, error) {
	client, err := su.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	row := map[string]interface{}{
		"slug":       c.Slug,
		"title":      c.Title,
		"body":       c.Body,
		"image_url":  c.ImageURL,
		"published":  c.Published,
		"updated_by": c.UpdatedBy,
		"updated_at": c.UpdatedAt,
	}
	raw, _, err := client.From(SiteContentTable).
		Upsert(row, "slug", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert content: %v", err)
	}

	var rows []*SiteContent
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no content returned after upsert")
	}
	return rows[0], nil
}
