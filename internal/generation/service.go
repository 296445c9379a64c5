package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wordgarden/gateway/internal/governance/audit"
	"github.com/wordgarden/gateway/internal/governance/quota"
	"github.com/wordgarden/gateway/internal/metrics"
)

// Ledger is the part of *quota.Ledger the proxy needs.
type Ledger interface {
	CheckAndReserve(ctx context.Context, subjectID string) (*quota.Reservation, error)
	Commit(ctx context.Context, subjectID string) (quota.Record, error)
}

// Service runs quota-gated generations. Usage is only counted for
// generations that succeed.
type Service struct {
	ledger  Ledger
	backend Backend
	audit   audit.Recorder
}

func NewService(ledger Ledger, backend Backend, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.LogRecorder{}
	}
	return &Service{ledger: ledger, backend: backend, audit: rec}
}

// Generate returns quota.ErrMonthlyExceeded or quota.ErrDailyExceeded without
// calling the backend when the subject is over a cap, and an error wrapping
// ErrUpstream when the backend fails.
func (s *Service) Generate(ctx context.Context, subjectID string, req Request) (string, error) {
	res, err := s.ledger.CheckAndReserve(ctx, subjectID)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("checking quota: %w", err)
	}
	if res.Decision != quota.Allowed {
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		metrics.QuotaRejectionsTotal.WithLabelValues(res.Decision.String()).Inc()
		s.audit.Record(ctx, audit.Event{
			EventType: audit.EventQuotaExceeded,
			Severity:  audit.SeverityWarn,
			Actor:     subjectID,
			Details: fmt.Sprintf("%s cap reached: monthly %d/%d, daily %d/%d", res.Decision,
				res.Record.MonthlyCount, res.Limits.Monthly, res.Record.DailyCount, res.Limits.Daily),
		})
		return "", res.Err()
	}

	start := time.Now()
	text, err := s.backend.Generate(ctx, req)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("upstream_error").Inc()
		s.audit.Record(ctx, audit.Event{
			EventType: audit.EventGenerationFailed,
			Severity:  audit.SeverityError,
			Actor:     subjectID,
			Details:   err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// The caller already got a generation; a failed commit under-counts
	// rather than withholding the result.
	if _, err := s.ledger.Commit(ctx, subjectID); err != nil {
		slog.Error("generation: committing usage", "subject", subjectID, "error", err)
	}

	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	return text, nil
}
