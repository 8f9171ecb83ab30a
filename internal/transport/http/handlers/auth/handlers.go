package authhandler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfeval/internal/domain/auth"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Refresh(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, userID, sessionID string) error
}

type Handler struct {
	Service Service
	Log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/refresh", h.HandleRefresh)
		r.With(middleware.RequireAuth).Post("/logout", h.HandleLogout)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, requestID) {
		return
	}

	result, err := h.Service.Login(r.Context(), strings.TrimSpace(payload.Email), payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
			return
		}
		h.Log.Error("login failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", requestID)
		return
	}

	api.Success(w, map[string]any{
		"token": result.Token,
		"user": map[string]string{
			"id":       result.User.ID,
			"tenantId": result.User.TenantID,
			"roleId":   result.User.RoleID,
			"role":     result.User.RoleName,
		},
	}, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.Logout(r.Context(), user.UserID, user.SessionID); err != nil {
		h.Log.Warn("logout session revoke failed", zap.String("userId", user.UserID), zap.Error(err))
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	token := middleware.BearerToken(r)
	if token == "" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "bearer token required", requestID)
		return
	}
	next, err := h.Service.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrSessionInvalid) {
			api.Fail(w, http.StatusUnauthorized, "session_invalid", "session expired or revoked", requestID)
			return
		}
		h.Log.Error("token refresh failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "refresh_failed", "failed to refresh token", requestID)
		return
	}
	api.Success(w, map[string]string{"token": next}, requestID)
}
