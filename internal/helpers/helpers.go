package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContentFolder = "cms"
	AvatarFolder  = "avatars"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	SessionID   string `json:"session_id"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenValidator verifies Supabase access tokens against the project's JWKS.
// The key set is fetched once and refreshed in the background.
type TokenValidator struct {
	jwks *keyfunc.JWKS
}

func NewTokenValidator(ctx context.Context, supabaseURL string) (*TokenValidator, error) {
	if supabaseURL == "" {
		return nil, errors.New("supabase url not set")
	}
	jwksURL := fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", strings.TrimRight(supabaseURL, "/"))

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:                         ctx,
		RefreshInterval:             time.Hour,
		RefreshRateLimit:            5 * time.Minute,
		RefreshTimeout:              10 * time.Second,
		RefreshUnknownKID:           true,
		TolerateInitialJWKHTTPError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load jwks: %v", err)
	}
	return &TokenValidator{jwks: jwks}, nil
}

// NewTokenValidatorFromKeys builds a validator over a fixed key set.
func NewTokenValidatorFromKeys(keys map[string]keyfunc.GivenKey) *TokenValidator {
	return &TokenValidator{jwks: keyfunc.NewGiven(keys)}
}

func (v *TokenValidator) Validate(tokenStr string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, v.jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (v *TokenValidator) Close() {
	v.jwks.EndBackground()
}

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	numberRe  = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[@$!%*?&#^()_\-+=]`)
)

func IsPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		numberRe.MatchString(password) &&
		specialRe.MatchString(password)
}

// UploadImage streams a single image to Cloudinary and returns its secure URL.
func UploadImage(ctx context.Context, cld *cloudinary.Cloudinary, file io.Reader, folder, publicID string) (string, error) {
	if cld == nil {
		return "", errors.New("cloudinary is not configured")
	}

	overwrite := true
	res, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    folder,
		PublicID:  publicID,
		Overwrite: &overwrite,
		Tags:      []string{"cleanbook"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %v", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// CloudinaryUploader adapts a Cloudinary client to the content image store.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(cld *cloudinary.Cloudinary) *CloudinaryUploader {
	return &CloudinaryUploader{cld: cld}
}

func (u *CloudinaryUploader) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	return UploadImage(ctx, u.cld, file, folder, publicID)
}
