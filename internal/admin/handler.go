package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wordgarden/gateway/internal/api"
	"github.com/wordgarden/gateway/internal/auth"
	"github.com/wordgarden/gateway/internal/governance/limits"
	"github.com/wordgarden/gateway/internal/users"
)

// Handler serves the admin routes. Callers are already authenticated and
// checked against the admin allow-list.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func actor(r *http.Request) string {
	if claims := auth.GetUserClaims(r.Context()); claims != nil {
		return claims.Email
	}
	return ""
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := Query{
		Search: r.URL.Query().Get("q"),
		Sort:   r.URL.Query().Get("sort"),
	}
	switch q.Sort {
	case "", SortEmail, SortUsage, SortLastActive:
	default:
		api.HandleError(w, api.NewValidationError("sort must be one of email, usage, lastActive"))
		return
	}

	snap, err := h.svc.Snapshot(r.Context(), q)
	if err != nil {
		slog.Error("building dashboard snapshot", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, snap)
}

func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !h.valid(w, req) {
		return
	}

	user, err := h.svc.AddUser(r.Context(), actor(r), req)
	if err != nil {
		h.fail(w, "adding user", err)
		return
	}
	api.JSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	var req RemoveUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !h.valid(w, req) {
		return
	}

	if err := h.svc.RemoveUser(r.Context(), actor(r), req.Email); err != nil {
		h.fail(w, "removing user", err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) SetUserLimits(w http.ResponseWriter, r *http.Request) {
	var req UserLimitRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !h.valid(w, req) {
		return
	}

	effective, err := h.svc.SetUserLimits(r.Context(), actor(r), req)
	if err != nil {
		h.fail(w, "setting user limits", err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]limits.Limits{"limits": effective})
}

func (h *Handler) SetGlobalLimits(w http.ResponseWriter, r *http.Request) {
	var req GlobalLimitsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.valid(w, req) {
		return
	}

	stored, err := h.svc.SetSystemLimits(r.Context(), actor(r), limits.Limits{Monthly: *req.Monthly, Daily: *req.Daily})
	if err != nil {
		h.fail(w, "setting system limits", err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]limits.Limits{"limits": stored})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := api.DecodeJSON(r, v); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return false
	}
	return true
}

func (h *Handler) valid(w http.ResponseWriter, v any) bool {
	if err := h.validate.Struct(v); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		api.HandleError(w, api.ErrUserNotFound)
	case errors.Is(err, users.ErrDuplicateEmail):
		api.HandleError(w, api.ErrDuplicateEmail)
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
