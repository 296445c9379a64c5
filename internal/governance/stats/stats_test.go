package stats

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordgarden/gateway/internal/kv"
)

func setupRecorder(t *testing.T) *Recorder {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRecorder(kv.NewRedisStore(client))
}

func TestIncrementAndWindow(t *testing.T) {
	rec := setupRecorder(t)
	ctx := context.Background()

	today := time.Date(2024, 5, 20, 23, 30, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, rec.Increment(ctx, today))
	require.NoError(t, rec.Increment(ctx, today))
	require.NoError(t, rec.Increment(ctx, yesterday))

	window, err := rec.Window(ctx, today, 30)
	require.NoError(t, err)
	require.Len(t, window, 30)

	assert.Equal(t, "2024-04-21", window[0].Date)
	assert.Equal(t, 0, window[0].Count)
	assert.Equal(t, DailyStat{Date: "2024-05-19", Count: 1}, window[28])
	assert.Equal(t, DailyStat{Date: "2024-05-20", Count: 2}, window[29])
}

func TestIncrement_UsesUTCDay(t *testing.T) {
	rec := setupRecorder(t)
	ctx := context.Background()

	// 01:00 in UTC+3 is still the previous UTC day.
	loc := time.FixedZone("UTC+3", 3*60*60)
	at := time.Date(2024, 6, 1, 1, 0, 0, 0, loc)
	require.NoError(t, rec.Increment(ctx, at))

	window, err := rec.Window(ctx, at, 2)
	require.NoError(t, err)
	assert.Equal(t, []DailyStat{{Date: "2024-05-30", Count: 0}, {Date: "2024-05-31", Count: 1}}, window)
}
