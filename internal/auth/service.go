package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wordgarden/gateway/internal/governance/audit"
	"github.com/wordgarden/gateway/internal/metrics"
)

var (
	ErrMissingSubject  = errors.New("subject id is required")
	ErrSubjectMismatch = errors.New("identity does not belong to the claimed subject")
)

// Directory records that a subject was seen. Satisfied by *users.Service.
type Directory interface {
	Touch(ctx context.Context, subjectID, email, name string) error
}

// Service exchanges identity-provider assertions for session tokens.
type Service struct {
	verifier IdentityVerifier
	jwt      *JWTManager
	dir      Directory
	audit    audit.Recorder
}

func NewService(verifier IdentityVerifier, jwt *JWTManager, dir Directory, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.LogRecorder{}
	}
	return &Service{
		verifier: verifier,
		jwt:      jwt,
		dir:      dir,
		audit:    rec,
	}
}

// Exchange verifies assertion with the identity provider and, when it belongs
// to claimed.SubjectID, records the sign-in and issues a session. The email
// comes from the provider only: it gates admin access and placeholder claims,
// so a caller-supplied address is never trusted. The claimed display name is
// used when the provider has none.
func (s *Service) Exchange(ctx context.Context, assertion string, claimed Identity) (*Session, error) {
	if claimed.SubjectID == "" {
		return nil, ErrMissingSubject
	}

	verified, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if verified.SubjectID != claimed.SubjectID {
		metrics.TokenExchangesTotal.WithLabelValues("mismatch").Inc()
		slog.Warn("token exchange: subject mismatch", "claimed", claimed.SubjectID, "verified", verified.SubjectID)
		return nil, ErrSubjectMismatch
	}

	email := verified.Email
	name := firstNonEmpty(verified.DisplayName, claimed.DisplayName)

	if err := s.dir.Touch(ctx, verified.SubjectID, email, name); err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("recording sign-in: %w", err)
	}

	session, err := s.jwt.Issue(verified.SubjectID, email)
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.TokenExchangesTotal.WithLabelValues("ok").Inc()
	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventTokenExchanged,
		Actor:     verified.SubjectID,
		Subject:   email,
	})
	return session, nil
}

func (s *Service) JWT() *JWTManager {
	return s.jwt
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
