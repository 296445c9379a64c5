package quota

import (
	"errors"

	"github.com/wordgarden/gateway/internal/governance/limits"
)

var (
	ErrMonthlyExceeded = errors.New("monthly quota exceeded")
	ErrDailyExceeded   = errors.New("daily quota exceeded")
)

// Record matches the quota:{subjectId} value. Counts belong to the period
// stamped next to them and are stale once that period has passed.
type Record struct {
	MonthlyCount  int    `json:"monthlyCount"`
	MonthlyPeriod string `json:"monthlyPeriod"`
	DailyCount    int    `json:"dailyCount"`
	DailyPeriod   string `json:"dailyPeriod"`
}

type Decision int

const (
	Allowed Decision = iota
	MonthlyExceeded
	DailyExceeded
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case MonthlyExceeded:
		return "monthly"
	case DailyExceeded:
		return "daily"
	default:
		return "unknown"
	}
}

// Reservation is the outcome of a pre-flight check. Nothing is held: the
// counters only move on Commit.
type Reservation struct {
	SubjectID string
	Decision  Decision
	Record    Record
	Limits    limits.Limits
}

// Err maps a rejected decision to its sentinel error.
func (r *Reservation) Err() error {
	switch r.Decision {
	case MonthlyExceeded:
		return ErrMonthlyExceeded
	case DailyExceeded:
		return ErrDailyExceeded
	default:
		return nil
	}
}

// Status is the user-facing quota view.
type Status struct {
	Usage      int    `json:"usage"`
	Limit      int    `json:"limit"`
	DailyUsage int    `json:"dailyUsage"`
	DailyLimit int    `json:"dailyLimit"`
	Month      string `json:"month"`
	Day        string `json:"day"`
}
