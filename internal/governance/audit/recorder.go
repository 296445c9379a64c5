package audit

import (
	"context"
	"log/slog"
	"time"
)

// Recorder receives audit events. Implementations never fail the caller:
// a lost audit event is logged, the request it describes still succeeds.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// EventPublisher is satisfied by *nats.Publisher.
type EventPublisher interface {
	PublishAuditEvent(ctx context.Context, event Event) error
}

// Inserter is satisfied by *Repository.
type Inserter interface {
	Insert(ctx context.Context, log *AuditLog) error
}

func stamp(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	return event
}

// LogRecorder writes events to the structured log only.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, event Event) {
	event = stamp(event)
	slog.InfoContext(ctx, "audit event",
		"event_type", event.EventType,
		"severity", event.Severity,
		"actor", event.Actor,
		"subject", event.Subject,
		"details", event.Details,
	)
}

// PublishingRecorder sends events to JetStream for the Consumer to persist.
type PublishingRecorder struct {
	pub EventPublisher
}

func NewPublishingRecorder(pub EventPublisher) *PublishingRecorder {
	return &PublishingRecorder{pub: pub}
}

func (r *PublishingRecorder) Record(ctx context.Context, event Event) {
	event = stamp(event)
	if err := r.pub.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("audit: publishing event", "error", err, "event_type", event.EventType)
	}
}

// DirectRecorder inserts events straight into Postgres. Used when the
// database is configured but NATS is not.
type DirectRecorder struct {
	repo Inserter
}

func NewDirectRecorder(repo Inserter) *DirectRecorder {
	return &DirectRecorder{repo: repo}
}

func (r *DirectRecorder) Record(ctx context.Context, event Event) {
	event = stamp(event)
	if err := r.repo.Insert(ctx, toLog(event)); err != nil {
		slog.Warn("audit: persisting event", "error", err, "event_type", event.EventType)
	}
}
