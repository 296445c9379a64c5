package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordgarden/gateway/internal/governance/audit"
	"github.com/wordgarden/gateway/internal/governance/limits"
	"github.com/wordgarden/gateway/internal/governance/quota"
	"github.com/wordgarden/gateway/internal/governance/stats"
	"github.com/wordgarden/gateway/internal/kv"
	"github.com/wordgarden/gateway/internal/users"
)

type captured struct {
	events []audit.Event
}

func (c *captured) Record(_ context.Context, e audit.Event) {
	c.events = append(c.events, e)
}

type fixture struct {
	svc      *Service
	users    *users.Service
	ledger   *quota.Ledger
	resolver *limits.Resolver
	store    kv.Store
	audit    *captured
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := kv.NewRedisStore(client)
	userSvc := users.NewService(users.NewRepository(store))
	resolver := limits.NewResolver(store, limits.Limits{Monthly: 50, Daily: 10})
	st := stats.NewRecorder(store)
	ledger := quota.NewLedger(store, resolver, st)
	rec := &captured{}

	return &fixture{
		svc:      NewService(userSvc, ledger, resolver, st, rec),
		users:    userSvc,
		ledger:   ledger,
		resolver: resolver,
		store:    store,
		audit:    rec,
	}
}

func intPtr(v int) *int { return &v }

func (f *fixture) seedUsage(t *testing.T, subjectID string, monthly, daily int) {
	t.Helper()
	now := time.Now()
	rec := quota.Record{MonthlyCount: monthly, MonthlyPeriod: quota.Month(now), DailyCount: daily, DailyPeriod: quota.Day(now)}
	require.NoError(t, kv.PutJSON(context.Background(), f.store, "quota:"+subjectID, rec, 0))
}

func TestSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.users.Touch(ctx, "uid-a", "alice@example.com", "Alice"))
	require.NoError(t, f.users.Touch(ctx, "uid-b", "bob@example.com", "Bob"))
	carol, err := f.svc.AddUser(ctx, "admin@example.com", AddUserRequest{Email: "carol@example.com", Daily: intPtr(5)})
	require.NoError(t, err)

	f.seedUsage(t, "uid-a", 7, 2)
	f.seedUsage(t, "uid-b", 20, 1)
	for i := 0; i < 3; i++ {
		_, err := f.ledger.Commit(ctx, "uid-a")
		require.NoError(t, err)
	}

	snap, err := f.svc.Snapshot(ctx, Query{})
	require.NoError(t, err)

	require.Len(t, snap.Users, 3)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com", "carol@example.com"},
		[]string{snap.Users[0].Email, snap.Users[1].Email, snap.Users[2].Email})

	alice := snap.Users[0]
	assert.Equal(t, 10, alice.MonthlyUsage)
	assert.Equal(t, 5, alice.DailyUsage)
	assert.Equal(t, 50, alice.MonthlyLimit)
	assert.False(t, alice.HasOverride)
	assert.NotEqual(t, users.NeverActive, alice.LastActive)

	c := snap.Users[2]
	assert.Equal(t, carol.ID, c.ID)
	assert.True(t, c.ManuallyAdded)
	assert.True(t, c.HasOverride)
	assert.Equal(t, 5, c.DailyLimit)
	assert.Equal(t, users.NeverActive, c.LastActive)

	assert.Equal(t, limits.Limits{Monthly: 50, Daily: 10}, snap.SystemLimits)
	assert.Equal(t, Summary{TotalUsers: 3, ActiveToday: 2, MonthlyRequests: 30}, snap.Summary)

	require.Len(t, snap.DailyStats, StatsWindowDays)
	assert.Equal(t, quota.Day(time.Now()), snap.DailyStats[StatsWindowDays-1].Date)
	assert.Equal(t, 3, snap.DailyStats[StatsWindowDays-1].Count)
}

func TestSnapshot_SearchAndSort(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.users.Touch(ctx, "uid-a", "alice@example.com", "Alice"))
	require.NoError(t, f.users.Touch(ctx, "uid-b", "bob@corp.io", "Bob"))
	_, err := f.svc.AddUser(ctx, "admin@example.com", AddUserRequest{Email: "zed@example.com", Name: "Zed"})
	require.NoError(t, err)
	f.seedUsage(t, "uid-b", 9, 0)

	snap, err := f.svc.Snapshot(ctx, Query{Search: "EXAMPLE"})
	require.NoError(t, err)
	require.Len(t, snap.Users, 2)
	assert.Equal(t, 3, snap.Summary.TotalUsers)

	snap, err = f.svc.Snapshot(ctx, Query{Sort: SortUsage})
	require.NoError(t, err)
	assert.Equal(t, "bob@corp.io", snap.Users[0].Email)

	snap, err = f.svc.Snapshot(ctx, Query{Sort: SortLastActive})
	require.NoError(t, err)
	assert.Equal(t, "zed@example.com", snap.Users[2].Email)
}

func TestAddUser_Duplicate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AddUser(ctx, "admin@example.com", AddUserRequest{Email: "dup@example.com"})
	require.NoError(t, err)
	_, err = f.svc.AddUser(ctx, "admin@example.com", AddUserRequest{Email: "DUP@example.com"})
	assert.ErrorIs(t, err, users.ErrDuplicateEmail)

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, audit.EventUserAdded, f.audit.events[0].EventType)
}

// limitsWriteFailure rejects writes to override keys.
type limitsWriteFailure struct {
	kv.Store
}

func (s limitsWriteFailure) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.HasPrefix(key, "limits:") {
		return errors.New("store unavailable")
	}
	return s.Store.Put(ctx, key, value, ttl)
}

func TestAddUser_OverrideFailureRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	resolver := limits.NewResolver(limitsWriteFailure{f.store}, limits.Limits{Monthly: 50, Daily: 10})
	svc := NewService(f.users, f.ledger, resolver, stats.NewRecorder(f.store), f.audit)

	_, err := svc.AddUser(ctx, "admin@example.com", AddUserRequest{Email: "late@example.com", Monthly: intPtr(5)})
	require.Error(t, err)

	_, err = f.users.GetByEmail(ctx, "late@example.com")
	assert.ErrorIs(t, err, users.ErrNotFound)
	assert.Empty(t, f.audit.events)

	_, err = f.svc.AddUser(ctx, "admin@example.com", AddUserRequest{Email: "late@example.com", Monthly: intPtr(5)})
	assert.NoError(t, err)
}

func TestRemoveUser_Cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.users.Touch(ctx, "uid-a", "alice@example.com", ""))
	require.NoError(t, f.resolver.SetOverride(ctx, "uid-a", limits.Override{Monthly: intPtr(3)}))
	f.seedUsage(t, "uid-a", 2, 2)

	require.NoError(t, f.svc.RemoveUser(ctx, "admin@example.com", "alice@example.com"))

	_, err := f.users.Get(ctx, "uid-a")
	assert.ErrorIs(t, err, users.ErrNotFound)
	o, err := f.resolver.Override(ctx, "uid-a")
	require.NoError(t, err)
	assert.Nil(t, o)
	rec, err := f.ledger.Peek(ctx, "uid-a")
	require.NoError(t, err)
	assert.Zero(t, rec.MonthlyCount)

	assert.ErrorIs(t, f.svc.RemoveUser(ctx, "admin@example.com", "nobody@example.com"), users.ErrNotFound)
}

func TestSetUserLimits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.users.Touch(ctx, "uid-a", "alice@example.com", ""))

	eff, err := f.svc.SetUserLimits(ctx, "admin@example.com", UserLimitRequest{Email: "Alice@Example.com", Daily: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, limits.Limits{Monthly: 50, Daily: 5}, eff)

	eff, err = f.svc.SetUserLimits(ctx, "admin@example.com", UserLimitRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, limits.Limits{Monthly: 50, Daily: 10}, eff)

	_, err = f.svc.SetUserLimits(ctx, "admin@example.com", UserLimitRequest{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestSetSystemLimits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stored, err := f.svc.SetSystemLimits(ctx, "admin@example.com", limits.Limits{Monthly: 100, Daily: 20})
	require.NoError(t, err)
	assert.Equal(t, limits.Limits{Monthly: 100, Daily: 20}, stored)
	assert.Equal(t, stored, f.resolver.Resolve(ctx, "anyone"))

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, audit.EventSystemLimitsUpdated, f.audit.events[0].EventType)
	assert.Equal(t, "monthly=100 daily=20", f.audit.events[0].Details)
}
