package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	inats "github.com/wordgarden/gateway/internal/nats"
)

// Event types.
const (
	EventUserAdded           = "user_added"
	EventUserRemoved         = "user_removed"
	EventUserLimitsUpdated   = "user_limits_updated"
	EventSystemLimitsUpdated = "system_limits_updated"
	EventQuotaExceeded       = "quota_exceeded"
	EventGenerationFailed    = "generation_failed"
	EventTokenExchanged      = "token_exchanged"
)

// Severities.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Event is what services hand to a Recorder. It is also the JetStream payload.
type Event = inats.AuditEvent

// AuditLog matches the audit_logs table schema.
type AuditLog struct {
	ID        uuid.UUID       `json:"id"`
	EventType string          `json:"event_type"`
	Severity  string          `json:"severity"`
	Actor     string          `json:"actor"`
	Subject   string          `json:"subject,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit log queries.
type ListParams struct {
	EventType string
	Severity  string
	Subject   string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

// toLog converts a published event into its database row.
func toLog(event Event) *AuditLog {
	log := &AuditLog{
		ID:        uuid.New(),
		EventType: event.EventType,
		Severity:  event.Severity,
		Actor:     event.Actor,
		Subject:   event.Subject,
		CreatedAt: event.Timestamp,
	}
	if log.Severity == "" {
		log.Severity = SeverityInfo
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	// Details are stored as JSONB {"message": "..."}
	detailsMap := map[string]string{"message": event.Details}
	if data, err := json.Marshal(detailsMap); err == nil {
		log.Details = data
	}
	return log
}
