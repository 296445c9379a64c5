package generation

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wordgarden/gateway/internal/api"
	"github.com/wordgarden/gateway/internal/auth"
	"github.com/wordgarden/gateway/internal/governance/quota"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Generate handles POST /v1/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req Request
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(validationMessage(err)))
		return
	}

	text, err := h.svc.Generate(r.Context(), claims.SubjectID(), req)
	switch {
	case err == nil:
		api.JSON(w, http.StatusOK, Response{Result: text})
	case errors.Is(err, quota.ErrMonthlyExceeded):
		api.HandleError(w, api.ErrMonthlyQuota)
	case errors.Is(err, quota.ErrDailyExceeded):
		api.HandleError(w, api.ErrDailyQuota)
	case errors.Is(err, ErrUpstream):
		slog.Error("generation failed", "subject", claims.SubjectID(), "error", err)
		api.HandleError(w, api.ErrUpstream)
	default:
		slog.Error("generation", "subject", claims.SubjectID(), "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	switch verrs[0].Field() {
	case "Prompt":
		return "missing prompt"
	case "MaxTokens":
		return "max_tokens must be between 1 and 4096"
	case "Temperature":
		return "temperature must be between 0 and 5"
	default:
		return "invalid request"
	}
}
