package governance

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wordgarden/gateway/internal/api"
	"github.com/wordgarden/gateway/internal/auth"
	"github.com/wordgarden/gateway/internal/governance/audit"
	"github.com/wordgarden/gateway/internal/governance/quota"
)

// QuotaReader reports a subject's usage. Satisfied by *quota.Ledger.
type QuotaReader interface {
	Status(ctx context.Context, subjectID string) (*quota.Status, error)
}

// AuditLister pages through the persisted audit trail. Satisfied by *audit.Repository.
type AuditLister interface {
	List(ctx context.Context, params audit.ListParams) ([]audit.AuditLog, int64, error)
}

// Handler provides HTTP handlers for governance endpoints.
type Handler struct {
	quota     QuotaReader
	auditRepo AuditLister
}

// NewHandler creates a governance Handler. auditRepo may be nil when no
// database is configured; the audit listing then answers 404.
func NewHandler(quota QuotaReader, auditRepo AuditLister) *Handler {
	return &Handler{
		quota:     quota,
		auditRepo: auditRepo,
	}
}

// GetQuota returns the authenticated user's current usage and caps.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.quota.Status(r.Context(), claims.SubjectID())
	if err != nil {
		slog.Error("reading quota status", "subject", claims.SubjectID(), "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}

// ListAuditLogs returns paginated audit logs, newest first.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if h.auditRepo == nil {
		api.HandleError(w, api.NewNotFoundError("audit trail is not enabled"))
		return
	}

	params := parseAuditParams(r)

	logs, total, err := h.auditRepo.List(r.Context(), params)
	if err != nil {
		slog.Error("listing audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseAuditParams(r *http.Request) audit.ListParams {
	params := audit.DefaultListParams()
	q := r.URL.Query()

	params.EventType = q.Get("event_type")
	params.Severity = q.Get("severity")
	params.Subject = q.Get("subject")

	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}
