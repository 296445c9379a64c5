package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wordgarden/gateway/internal/governance/limits"
	"github.com/wordgarden/gateway/internal/kv"
)

const (
	keyPrefix = "quota:"
	recordTTL = 35 * 24 * time.Hour
)

// LimitResolver yields the effective caps for a subject.
type LimitResolver interface {
	Resolve(ctx context.Context, subjectID string) limits.Limits
}

// DayCounter counts committed generations per UTC day.
type DayCounter interface {
	Increment(ctx context.Context, at time.Time) error
}

// Ledger tracks per-user monthly and daily usage with lazy period rollover.
//
// Check and commit are separate reads and writes against the store, so two
// concurrent requests for the same subject can both pass the check and one
// increment can overwrite the other.
type Ledger struct {
	store    kv.Store
	resolver LimitResolver
	days     DayCounter
	now      func() time.Time
}

func NewLedger(store kv.Store, resolver LimitResolver, days DayCounter) *Ledger {
	return &Ledger{
		store:    store,
		resolver: resolver,
		days:     days,
		now:      time.Now,
	}
}

func recordKey(subjectID string) string {
	return keyPrefix + subjectID
}

// CheckAndReserve decides whether one more generation is allowed. The
// monthly cap is checked before the daily one. No counter is changed.
func (l *Ledger) CheckAndReserve(ctx context.Context, subjectID string) (*Reservation, error) {
	rec, err := l.Peek(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	caps := l.resolver.Resolve(ctx, subjectID)

	res := &Reservation{SubjectID: subjectID, Record: rec, Limits: caps}
	switch {
	case rec.MonthlyCount >= caps.Monthly:
		res.Decision = MonthlyExceeded
	case rec.DailyCount >= caps.Daily:
		res.Decision = DailyExceeded
	default:
		res.Decision = Allowed
	}
	return res, nil
}

// Commit records one successful generation: both counters go up by one in a
// single write, then the global day counter is bumped.
func (l *Ledger) Commit(ctx context.Context, subjectID string) (Record, error) {
	now := l.now()
	rec, err := l.load(ctx, subjectID)
	if err != nil {
		return Record{}, err
	}
	rec = RolledOver(rec, now)
	rec.MonthlyCount++
	rec.DailyCount++

	if err := kv.PutJSON(ctx, l.store, recordKey(subjectID), rec, recordTTL); err != nil {
		return Record{}, fmt.Errorf("storing quota for %s: %w", subjectID, err)
	}

	if l.days != nil {
		if err := l.days.Increment(ctx, now); err != nil {
			slog.Warn("quota: incrementing daily stat", "subject", subjectID, "error", err)
		}
	}
	return rec, nil
}

// Status reports current usage against the resolved caps.
func (l *Ledger) Status(ctx context.Context, subjectID string) (*Status, error) {
	rec, err := l.Peek(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	caps := l.resolver.Resolve(ctx, subjectID)
	return &Status{
		Usage:      rec.MonthlyCount,
		Limit:      caps.Monthly,
		DailyUsage: rec.DailyCount,
		DailyLimit: caps.Daily,
		Month:      rec.MonthlyPeriod,
		Day:        rec.DailyPeriod,
	}, nil
}

// Peek returns the subject's record with rollover applied, without writing.
func (l *Ledger) Peek(ctx context.Context, subjectID string) (Record, error) {
	rec, err := l.load(ctx, subjectID)
	if err != nil {
		return Record{}, err
	}
	return RolledOver(rec, l.now()), nil
}

func (l *Ledger) Delete(ctx context.Context, subjectID string) error {
	if err := l.store.Delete(ctx, recordKey(subjectID)); err != nil {
		return fmt.Errorf("deleting quota for %s: %w", subjectID, err)
	}
	return nil
}

// load returns the stored record, or a zero record when none exists.
func (l *Ledger) load(ctx context.Context, subjectID string) (Record, error) {
	rec, err := kv.GetJSON[Record](ctx, l.store, recordKey(subjectID))
	if errors.Is(err, kv.ErrNotFound) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading quota for %s: %w", subjectID, err)
	}
	return *rec, nil
}
