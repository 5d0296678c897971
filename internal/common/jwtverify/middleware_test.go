package jwtverify

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "user-1",
		"usr":  "alice",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func testLogger() *logger.Logger {
	log, _ := logger.New("", "test", "error")
	return log
}

func TestParseToken(t *testing.T) {
	secret := []byte(testSecret)

	claims, err := ParseToken(signToken(t, jwt.SigningMethodHS256, secret, validClaims("admin")), secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" || claims.Role != "admin" {
		t.Errorf("unexpected claims %+v", claims)
	}

	expired := validClaims("")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := ParseToken(signToken(t, jwt.SigningMethodHS256, secret, expired), secret); !errors.Is(err, commonerrors.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}

	noSub := validClaims("")
	delete(noSub, "sub")
	if _, err := ParseToken(signToken(t, jwt.SigningMethodHS256, secret, noSub), secret); !errors.Is(err, commonerrors.ErrMissingTokenClaims) {
		t.Errorf("expected ErrMissingTokenClaims, got %v", err)
	}

	wrongAlg := signToken(t, jwt.SigningMethodHS512, secret, validClaims(""))
	if _, err := ParseToken(wrongAlg, secret); !errors.Is(err, commonerrors.ErrInvalidTokenSigningMethod) {
		t.Errorf("expected ErrInvalidTokenSigningMethod, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	var gotToken string
	var gotClaims Claims
	handler := Middleware(testSecret, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = TokenFromContext(r.Context())
		gotClaims, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("donor"))
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if gotToken != token {
		t.Error("expected raw token in context")
	}
	if gotClaims.Role != "donor" {
		t.Errorf("expected role donor, got %q", gotClaims.Role)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without header, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", rec.Code)
	}
	var env struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Code != "INVALID_TOKEN" {
		t.Errorf("expected INVALID_TOKEN, got %s", env.Code)
	}
}

func TestRequireRole(t *testing.T) {
	log := testLogger()
	handler := Middleware(testSecret, log)(RequireRole("admin", log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		role string
		want int
	}{
		{"admin", http.StatusNoContent},
		{"donor", http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/realtime/dashboard/connect", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(tt.role)))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	if got := ClientKey(req); got != "ip:10.1.1.1" {
		t.Errorf("unexpected anonymous key %s", got)
	}
}
