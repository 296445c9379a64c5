package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wordgarden/gateway/internal/api"
)

type Handler struct {
	authSvc *Service
}

func NewHandler(authSvc *Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// ExchangeRequest carries the caller's claimed identity. firebaseUid is the
// field name older clients send.
type ExchangeRequest struct {
	SubjectID   string `json:"subjectId"`
	FirebaseUID string `json:"firebaseUid"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

func (r ExchangeRequest) subject() string {
	if r.SubjectID != "" {
		return strings.TrimSpace(r.SubjectID)
	}
	return strings.TrimSpace(r.FirebaseUID)
}

// ExchangeToken trades the identity assertion in the Authorization header for
// a session token.
func (h *Handler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	assertion, ok := bearerToken(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req ExchangeRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if req.subject() == "" {
		api.HandleError(w, api.NewValidationError("subjectId is required"))
		return
	}

	session, err := h.authSvc.Exchange(r.Context(), assertion, Identity{
		SubjectID:   req.subject(),
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.Name),
	})
	switch {
	case err == nil:
		api.JSON(w, http.StatusOK, session)
	case errors.Is(err, ErrMissingSubject):
		api.HandleError(w, api.NewValidationError("subjectId is required"))
	case errors.Is(err, ErrIdentityVerificationFailed), errors.Is(err, ErrSubjectMismatch):
		slog.Info("token exchange rejected", "subject", req.subject(), "error", err)
		api.HandleError(w, api.ErrInvalidIdentity)
	default:
		slog.Error("token exchange", "subject", req.subject(), "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
