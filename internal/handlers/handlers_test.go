package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		field  string
	}{
		{&services.ValidationError{Field: "hours_worked", Message: "must be a number"}, http.StatusBadRequest, "hours_worked"},
		{&services.InvalidTransitionError{From: models.StatusPending, Action: services.ActionStart}, http.StatusConflict, ""},
		{fmt.Errorf("wrapped: %w", services.ErrForbidden), http.StatusForbidden, ""},
		{fmt.Errorf("get booking: %w", services.ErrNotFound), http.StatusNotFound, ""},
		{services.ErrSessionExpired, http.StatusUnauthorized, ""},
		{&services.StoreError{Op: "update booking", Err: errors.New("timeout")}, http.StatusBadGateway, ""},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)

		if w.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, w.Code)
			continue
		}
		var body models.ApiResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Success || body.Field != tc.field {
			t.Errorf("%v: unexpected body %+v", tc.err, body)
		}
	}
}

func TestStoreErrorDetailIsNotLeaked(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &services.StoreError{Op: "update booking", Err: errors.New("pq: password authentication failed")})

	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("store detail leaked: %s", w.Body.String())
	}
	if len(c.Errors) != 1 {
		t.Fatal("store errors must be attached for logging")
	}
}

func TestPageQuery(t *testing.T) {
	cases := []struct {
		query string
		ok    bool
		want  services.Page
	}{
		{"", true, services.Page{Offset: 0, Limit: 20}},
		{"?limit=5&offset=10", true, services.Page{Offset: 10, Limit: 5}},
		{"?limit=0", false, services.Page{}},
		{"?offset=-1", false, services.Page{}},
		{"?limit=abc", false, services.Page{}},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/bookings"+tc.query, nil)

		got, ok := pageQuery(c)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%q: got %+v %v", tc.query, got, ok)
		}
	}
}

func TestPathIDRejectsGarbage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	if _, ok := pathID(c, "id"); ok {
		t.Fatal("expected invalid id to be rejected")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func uploadContext(body io.Reader, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/complete", body)
	c.Request.Header.Set("Content-Type", contentType)
	return c, w
}

func TestReadUploadKeepsSurplusByName(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < 7; i++ {
		field := "photos"
		if i%2 == 1 {
			field = "photos[]"
		}
		fw, err := mw.CreateFormFile(field, fmt.Sprintf("p%d.jpg", i))
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}
	_ = mw.WriteField("hours_worked", "2.5")
	_ = mw.WriteField("hours_worked", "9")
	_ = mw.Close()

	c, _ := uploadContext(&buf, mw.FormDataContentType())
	form, ok := readUpload(c)
	if !ok {
		t.Fatal("expected the form to be read")
	}
	if len(form.photos) != 7 {
		t.Fatalf("expected every file to be passed on, got %d", len(form.photos))
	}
	for i, p := range form.photos {
		if p.Name != fmt.Sprintf("p%d.jpg", i) {
			t.Errorf("photo %d: unexpected name %s", i, p.Name)
		}
		if i < services.MaxPhotosPerBatch && len(p.Data) == 0 {
			t.Errorf("photo %d should carry data", i)
		}
		if i >= services.MaxPhotosPerBatch && p.Data != nil {
			t.Errorf("surplus photo %d must not be read", i)
		}
	}
	if form.value("hours_worked") != "2.5" {
		t.Fatalf("expected the first hours_worked value, got %q", form.value("hours_worked"))
	}
}

// Full size surplus files must not cost the worker the whole completion.
func TestReadUploadStreamsPastFullSizeSurplus(t *testing.T) {
	const files = services.MaxPhotosPerBatch + 3
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		chunk := make([]byte, 1<<20)
		for i := 0; i < files; i++ {
			fw, err := mw.CreateFormFile("photos", fmt.Sprintf("p%d.jpg", i))
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			_, _ = fw.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
			for n := 4; n < services.MaxPhotoBytes; n += len(chunk) {
				size := len(chunk)
				if services.MaxPhotoBytes-n < size {
					size = services.MaxPhotoBytes - n
				}
				if _, err := fw.Write(chunk[:size]); err != nil {
					pw.CloseWithError(err)
					return
				}
			}
		}
		_ = mw.WriteField("hours_worked", "3")
		pw.CloseWithError(mw.Close())
	}()

	c, w := uploadContext(pr, mw.FormDataContentType())
	form, ok := readUpload(c)
	if !ok {
		t.Fatalf("expected the form to be read, got %d: %s", w.Code, w.Body.String())
	}
	if len(form.photos) != files {
		t.Fatalf("expected %d files, got %d", files, len(form.photos))
	}
	if len(form.photos[0].Data) != services.MaxPhotoBytes {
		t.Fatalf("expected a full size photo, got %d bytes", len(form.photos[0].Data))
	}
	if form.value("hours_worked") != "3" {
		t.Fatal("hours_worked after the files must still be read")
	}
}

func TestReadUploadRejectsNonMultipart(t *testing.T) {
	c, w := uploadContext(bytes.NewBufferString(`{"hours_worked":"2"}`), "application/json")
	if _, ok := readUpload(c); ok {
		t.Fatal("expected a JSON body to be rejected")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

type memContent struct {
	rows map[string]*models.SiteContent
}

func (m *memContent) GetContent(_ context.Context, slug string) (*models.SiteContent, error) {
	c, ok := m.rows[slug]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (m *memContent) ListContent(context.Context) ([]*models.SiteContent, error) {
	return nil, nil
}

func (m *memContent) UpsertContent(_ context.Context, c *models.SiteContent) (*models.SiteContent, error) {
	m.rows[c.Slug] = c
	return c, nil
}

func TestGetContentRoute(t *testing.T) {
	repo := &memContent{rows: map[string]*models.SiteContent{
		"about": {Slug: "about", Title: "About us", Published: true},
		"draft": {Slug: "draft", Title: "Soon"},
	}}
	r := gin.New()
	r.GET("/content/:slug", GetContent(services.NewContentService(repo, nil, "cms")))

	for path, want := range map[string]int{
		"/content/about":    http.StatusOK,
		"/content/draft":    http.StatusNotFound,
		"/content/missing":  http.StatusNotFound,
		"/content/Bad_Slug": http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}

func TestAdminRouteWithoutIdentity(t *testing.T) {
	repo := &memContent{rows: map[string]*models.SiteContent{}}
	r := gin.New()
	r.GET("/admin/content", ListContent(services.NewContentService(repo, nil, "cms")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/content", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
