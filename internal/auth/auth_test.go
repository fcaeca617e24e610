package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-jwt-secret"

func newEnabledHandler(t *testing.T) *Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewHandler(testSecret, string(hash), false)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_DisabledPassesThrough(t *testing.T) {
	h := NewHandler("", "", false)

	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playlists", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestMiddleware_RequiresHeader(t *testing.T) {
	h := newEnabledHandler(t)

	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/playlists", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestMiddleware_Tokens(t *testing.T) {
	h := newEnabledHandler(t)
	access, _ := GenerateAccessToken(testSecret, time.Now())
	refresh, _ := GenerateRefreshToken(testSecret, time.Now())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid access token", "Bearer " + access, http.StatusOK},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"missing bearer prefix", access, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/playlists", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			h.Middleware(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	h := newEnabledHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"hunter22"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	claims, err := ValidateToken(testSecret, resp.AccessToken)
	if err != nil || claims.TokenType != "access" {
		t.Errorf("expected a valid access token, got %v", err)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookie && c.HttpOnly && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected refresh token cookie")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newEnabledHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"wrong"}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestLogin_Disabled(t *testing.T) {
	h := NewHandler("", "", false)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"x"}`)))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRefresh_IssuesNewAccessToken(t *testing.T) {
	h := newEnabledHandler(t)
	refresh, _ := GenerateRefreshToken(testSecret, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: refresh})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	h := newEnabledHandler(t)
	access, _ := GenerateAccessToken(testSecret, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: access})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := newEnabledHandler(t)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected expired refresh cookie, got %+v", cookies)
	}
}
