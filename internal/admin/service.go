// Package admin backs the operator dashboard: a denormalized view over the
// user directory, the quota ledger and the limit resolver, plus the
// mutations an admin can make to them.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/wordgarden/gateway/internal/governance/audit"
	"github.com/wordgarden/gateway/internal/governance/limits"
	"github.com/wordgarden/gateway/internal/governance/quota"
	"github.com/wordgarden/gateway/internal/governance/stats"
	"github.com/wordgarden/gateway/internal/users"
)

type Service struct {
	users    *users.Service
	ledger   *quota.Ledger
	resolver *limits.Resolver
	stats    *stats.Recorder
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(
	userSvc *users.Service,
	ledger *quota.Ledger,
	resolver *limits.Resolver,
	st *stats.Recorder,
	rec audit.Recorder,
) *Service {
	if rec == nil {
		rec = audit.LogRecorder{}
	}
	return &Service{
		users:    userSvc,
		ledger:   ledger,
		resolver: resolver,
		stats:    st,
		audit:    rec,
		now:      time.Now,
	}
}

// Snapshot builds the dashboard view. Summary figures cover every user;
// the search only narrows the returned rows.
func (s *Service) Snapshot(ctx context.Context, q Query) (*Snapshot, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	now := s.now().UTC()
	today := quota.Day(now)

	rows := make([]Row, 0, len(all))
	var summary Summary
	for i := range all {
		row := s.row(ctx, &all[i])

		summary.TotalUsers++
		summary.MonthlyRequests += row.MonthlyUsage
		if row.lastActiveAt != nil && quota.Day(*row.lastActiveAt) == today {
			summary.ActiveToday++
		}

		if matches(row, q.Search) {
			rows = append(rows, row)
		}
	}
	sortRows(rows, q.Sort)

	daily, err := s.stats.Window(ctx, now, StatsWindowDays)
	if err != nil {
		return nil, fmt.Errorf("loading daily stats: %w", err)
	}

	return &Snapshot{
		Users:        rows,
		SystemLimits: s.resolver.SystemLimits(ctx),
		DailyStats:   daily,
		Summary:      summary,
	}, nil
}

// row joins one user with their usage and limits. Unreadable quota or
// override records degrade to zero usage and no override.
func (s *Service) row(ctx context.Context, u *users.User) Row {
	rec, err := s.ledger.Peek(ctx, u.ID)
	if err != nil {
		slog.Warn("admin: reading quota", "subject", u.ID, "error", err)
		rec = quota.Record{}
	}
	override, err := s.resolver.Override(ctx, u.ID)
	if err != nil {
		slog.Warn("admin: reading override", "subject", u.ID, "error", err)
	}
	caps := s.resolver.Resolve(ctx, u.ID)

	return Row{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		MonthlyUsage:  rec.MonthlyCount,
		DailyUsage:    rec.DailyCount,
		MonthlyLimit:  caps.Monthly,
		DailyLimit:    caps.Daily,
		LastActive:    u.LastActive(),
		ManuallyAdded: u.ManuallyAdded,
		HasOverride:   override != nil,
		lastActiveAt:  u.LastActiveAt,
	}
}

func matches(row Row, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(row.Email), search) ||
		strings.Contains(strings.ToLower(row.Name), search)
}

func sortRows(rows []Row, order string) {
	byEmail := func(i, j int) bool {
		return strings.ToLower(rows[i].Email) < strings.ToLower(rows[j].Email)
	}

	switch order {
	case SortUsage:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].MonthlyUsage != rows[j].MonthlyUsage {
				return rows[i].MonthlyUsage > rows[j].MonthlyUsage
			}
			return byEmail(i, j)
		})
	case SortLastActive:
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].lastActiveAt, rows[j].lastActiveAt
			switch {
			case a == nil && b == nil:
				return byEmail(i, j)
			case a == nil:
				return false
			case b == nil:
				return true
			case !a.Equal(*b):
				return a.After(*b)
			default:
				return byEmail(i, j)
			}
		})
	default:
		sort.SliceStable(rows, byEmail)
	}
}

// AddUser registers a user before their first sign-in, optionally with an
// override.
func (s *Service) AddUser(ctx context.Context, actor string, req AddUserRequest) (*users.User, error) {
	user, err := s.users.Add(ctx, req.Email, req.Name)
	if err != nil {
		return nil, err
	}

	override := limits.Override{Monthly: req.Monthly, Daily: req.Daily}
	if !override.Empty() {
		if err := s.resolver.SetOverride(ctx, user.ID, override); err != nil {
			// Undo the add so a retry does not hit a duplicate.
			if _, rmErr := s.users.Remove(ctx, user.Email); rmErr != nil {
				slog.Warn("admin: rolling back added user", "subject", user.ID, "error", rmErr)
			}
			return nil, fmt.Errorf("storing override for %s: %w", user.Email, err)
		}
	}

	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventUserAdded,
		Actor:     actor,
		Subject:   user.Email,
		Details:   describeOverride(override),
	})
	return user, nil
}

// RemoveUser deletes the user and everything keyed by their subject id.
func (s *Service) RemoveUser(ctx context.Context, actor, email string) error {
	user, err := s.users.Remove(ctx, email)
	if err != nil {
		return err
	}

	if err := s.ledger.Delete(ctx, user.ID); err != nil {
		slog.Warn("admin: deleting quota of removed user", "subject", user.ID, "error", err)
	}
	if err := s.resolver.DeleteOverride(ctx, user.ID); err != nil {
		slog.Warn("admin: deleting override of removed user", "subject", user.ID, "error", err)
	}

	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventUserRemoved,
		Actor:     actor,
		Subject:   user.Email,
	})
	return nil
}

// SetUserLimits replaces the user's override and returns the limits now in
// effect for them.
func (s *Service) SetUserLimits(ctx context.Context, actor string, req UserLimitRequest) (limits.Limits, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return limits.Limits{}, err
	}

	override := limits.Override{Monthly: req.Monthly, Daily: req.Daily}
	if err := s.resolver.SetOverride(ctx, user.ID, override); err != nil {
		return limits.Limits{}, err
	}

	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventUserLimitsUpdated,
		Actor:     actor,
		Subject:   user.Email,
		Details:   describeOverride(override),
	})
	return s.resolver.Resolve(ctx, user.ID), nil
}

func (s *Service) SetSystemLimits(ctx context.Context, actor string, l limits.Limits) (limits.Limits, error) {
	if err := s.resolver.SetSystemLimits(ctx, l); err != nil {
		return limits.Limits{}, err
	}
	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventSystemLimitsUpdated,
		Actor:     actor,
		Details:   fmt.Sprintf("monthly=%d daily=%d", l.Monthly, l.Daily),
	})
	return l, nil
}

func describeOverride(o limits.Override) string {
	if o.Empty() {
		return "no override"
	}
	var parts []string
	if o.Monthly != nil {
		parts = append(parts, fmt.Sprintf("monthly=%d", *o.Monthly))
	}
	if o.Daily != nil {
		parts = append(parts, fmt.Sprintf("daily=%d", *o.Daily))
	}
	return strings.Join(parts, " ")
}
