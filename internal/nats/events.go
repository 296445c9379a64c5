package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every event the gateway publishes.
const StreamEvents = "WORDGARDEN_EVENTS"

// Subject constants.
const (
	SubjectEventsPrefix = "wordgarden.events"
	SubjectAuditEvent   = "wordgarden.events.audit"
)

// AuditEvent is published for every admin mutation and notable request outcome.
type AuditEvent struct {
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"` // info, warn, error
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
