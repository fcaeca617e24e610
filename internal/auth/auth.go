package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tunedeck/tunedeck/internal/httputil"
)

const refreshCookie = "refresh_token"

// Handler guards the API for a single owner. With no secret or password hash
// configured it is disabled and every request passes.
type Handler struct {
	jwtSecret     string
	passwordHash  []byte
	secureCookies bool
	now           func() time.Time
}

func NewHandler(jwtSecret, passwordHash string, secureCookies bool) *Handler {
	h := &Handler{jwtSecret: jwtSecret, secureCookies: secureCookies, now: time.Now}
	if passwordHash != "" {
		h.passwordHash = []byte(passwordHash)
	}
	return h
}

func (h *Handler) Enabled() bool {
	return h.jwtSecret != "" && len(h.passwordHash) > 0
}

type loginRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		httputil.WriteError(w, http.StatusNotFound, "authentication is not enabled")
		return
	}

	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		slog.Warn("auth: failed login attempt", "remote_addr", r.RemoteAddr)
		httputil.WriteError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	h.writeTokens(w, http.StatusOK)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		httputil.WriteError(w, http.StatusNotFound, "authentication is not enabled")
		return
	}

	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "refresh token not found")
		return
	}

	claims, err := ValidateToken(h.jwtSecret, cookie.Value)
	if err != nil || claims.TokenType != "refresh" {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	h.writeTokens(w, http.StatusOK)
}

func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTokens(w http.ResponseWriter, status int) {
	now := h.now()
	accessToken, err := GenerateAccessToken(h.jwtSecret, now)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}
	refreshToken, err := GenerateRefreshToken(h.jwtSecret, now)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refreshToken,
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(RefreshTokenDuration / time.Second),
	})
	httputil.WriteJSON(w, status, tokenResponse{AccessToken: accessToken})
}

func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := ValidateToken(h.jwtSecret, tokenStr)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.TokenType != "access" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token type")
			return
		}

		next.ServeHTTP(w, r)
	})
}
