package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"correction_pricing/internal/auth"
	"correction_pricing/internal/config"
	"correction_pricing/internal/logging"
	"correction_pricing/internal/ratelimit"
	"correction_pricing/internal/utils"
)

// AdminAuthHandler issues admin JWTs. Attempts are limited per client address;
// a successful login clears the count.
type AdminAuthHandler struct {
	store   auth.AdminStore
	cfg     *config.Config
	limiter ratelimit.Limiter
}

func NewAdminAuthHandler(store auth.AdminStore, cfg *config.Config, limiter ratelimit.Limiter) *AdminAuthHandler {
	if limiter == nil {
		limiter = ratelimit.NewNoopLimiter()
	}
	return &AdminAuthHandler{store: store, cfg: cfg, limiter: limiter}
}

// LoginRequest is the body of POST /admin/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token and its unix expiry
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// Login handles POST /admin/auth/login
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	key := "login:" + clientAddr(r)
	allowed, _, resetAt, err := h.limiter.AllowWithDetails(r.Context(), key, h.cfg.LoginAttemptsPerMinute)
	if err != nil {
		// Fail open
		logging.Warningf("Login rate limit unavailable: %v", err)
	} else if !allowed {
		retry := int(time.Until(resetAt).Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		utils.RespondWithError(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	token, exp, err := auth.GenerateAdminJWTWithPassword(r.Context(), req.Email, req.Password, h.store, h.cfg)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	case errors.Is(err, auth.ErrAccountDisabled):
		utils.RespondWithError(w, http.StatusForbidden, "Account disabled")
		return
	case err != nil:
		logging.Errorf("Admin login failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if resetter, ok := h.limiter.(interface {
		Reset(ctx context.Context, key string) error
	}); ok {
		if err := resetter.Reset(r.Context(), key); err != nil {
			logging.Debugf("Failed to reset login limit: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp})
}

// clientAddr is the caller's IP without the port
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
