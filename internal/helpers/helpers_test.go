package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joshua-takyi/cleanbook/internal/access"
)

var testSecret = []byte("test-signing-secret")

func signTestToken(t *testing.T, kid string, claims *CustomClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	s, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func testValidator() *TokenValidator {
	return NewTokenValidatorFromKeys(map[string]keyfunc.GivenKey{
		"test": keyfunc.NewGivenHMAC(testSecret, keyfunc.GivenKeyOptions{Algorithm: "HS256"}),
	})
}

func TestValidateToken(t *testing.T) {
	sub := uuid.New().String()
	claims := &CustomClaims{
		Email:     "staff@example.com",
		SessionID: "sess-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	got, err := testValidator().Validate(signTestToken(t, "test", claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Subject != sub || got.SessionID != "sess-1" {
		t.Fatalf("unexpected claims: %+v", got)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	claims := &CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}

	_, err := testValidator().Validate(signTestToken(t, "test", claims))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRejectsUnknownKey(t *testing.T) {
	claims := &CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	if _, err := testValidator().Validate(signTestToken(t, "other", claims)); err == nil {
		t.Fatal("expected error for unknown kid")
	}
}

func TestIsPasswordStrong(t *testing.T) {
	cases := map[string]bool{
		"short1!":        false,
		"alllowercase1!": false,
		"NoDigits!!":     false,
		"NoSpecial12":    false,
		"Str0ng!pass":    true,
	}
	for pw, want := range cases {
		if got := IsPasswordStrong(pw); got != want {
			t.Errorf("IsPasswordStrong(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestEnhancedClaimsCan(t *testing.T) {
	ec := &EnhancedClaims{
		Role:         access.RoleAdmin,
		Capabilities: access.NewSet(access.CapManageContent),
	}
	if !ec.IsAdmin() || ec.IsStaff() {
		t.Fatal("unexpected role checks")
	}
	if !ec.Can(access.CapManageContent) || ec.Can(access.CapManageRoles) {
		t.Fatalf("unexpected capabilities: %v", ec.Capabilities.List())
	}
}
