package services

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	errNoUploader = errors.New("image storage is not configured")
)

// ImageUploader stores a CMS image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
}

type ContentInput struct {
	Title     string `json:"title" validate:"max=200"`
	Body      string `json:"body" validate:"max=100000"`
	Published bool   `json:"published"`
}

type ContentService struct {
	content  models.ContentRepo
	uploader ImageUploader
	folder   string
	now      func() time.Time
}

func NewContentService(content models.ContentRepo, uploader ImageUploader, folder string) *ContentService {
	return &ContentService{
		content:  content,
		uploader: uploader,
		folder:   folder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validSlug(slug string) error {
	if len(slug) > 100 || !slugPattern.MatchString(slug) {
		return &ValidationError{Field: "slug", Message: "must be lowercase letters, digits and dashes"}
	}
	return nil
}

// Published returns a content block for the public site. Drafts are reported
// as not found.
func (cs *ContentService) Published(ctx context.Context, slug string) (*models.SiteContent, error) {
	if err := validSlug(slug); err != nil {
		return nil, err
	}
	c, err := cs.content.GetContent(ctx, slug)
	if err != nil {
		return nil, storeErr("get content", err)
	}
	if !c.Published {
		return nil, ErrNotFound
	}
	return c, nil
}

func (cs *ContentService) List(ctx context.Context, actor Actor) ([]*models.SiteContent, error) {
	if err := require(actor, access.CapManageContent); err != nil {
		return nil, err
	}
	rows, err := cs.content.ListContent(ctx)
	if err != nil {
		return nil, storeErr("list content", err)
	}
	return rows, nil
}

// Save creates or replaces the text of a block, keeping any existing image.
func (cs *ContentService) Save(ctx context.Context, actor Actor, slug string, input *ContentInput) (*models.SiteContent, error) {
	if err := require(actor, access.CapManageContent); err != nil {
		return nil, err
	}
	if err := validSlug(slug); err != nil {
		return nil, err
	}
	if err := models.Validate.Struct(input); err != nil {
		return nil, validationErr(err)
	}

	block, err := cs.current(ctx, slug)
	if err != nil {
		return nil, err
	}
	block.Title = strings.TrimSpace(input.Title)
	block.Body = input.Body
	block.Published = input.Published
	return cs.save(ctx, actor, block)
}

func (cs *ContentService) UploadImage(ctx context.Context, actor Actor, slug string, file io.Reader) (*models.SiteContent, error) {
	if err := require(actor, access.CapManageContent); err != nil {
		return nil, err
	}
	if err := validSlug(slug); err != nil {
		return nil, err
	}
	if cs.uploader == nil {
		return nil, &StoreError{Op: "upload content image", Err: errNoUploader}
	}

	block, err := cs.current(ctx, slug)
	if err != nil {
		return nil, err
	}
	url, err := cs.uploader.UploadImage(ctx, file, cs.folder, slug)
	if err != nil {
		return nil, &StoreError{Op: "upload content image", Err: err}
	}
	block.ImageURL = url
	return cs.save(ctx, actor, block)
}

func (cs *ContentService) current(ctx context.Context, slug string) (*models.SiteContent, error) {
	c, err := cs.content.GetContent(ctx, slug)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return &models.SiteContent{Slug: slug}, nil
	}
	return nil, storeErr("get content", err)
}

func (cs *ContentService) save(ctx context.Context, actor Actor, block *models.SiteContent) (*models.SiteContent, error) {
	id := actor.ID
	block.UpdatedBy = &id
	block.UpdatedAt = cs.now()
	saved, err := cs.content.UpsertContent(ctx, block)
	if err != nil {
		return nil, storeErr("save content", err)
	}
	return saved, nil
}
