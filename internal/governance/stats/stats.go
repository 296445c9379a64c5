// Package stats keeps the global per-day generation counter behind the
// dashboard trend chart.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wordgarden/gateway/internal/kv"
)

const (
	keyPrefix  = "stats:daily:"
	dateLayout = "2006-01-02"
	// Counters outlive the dashboard window by a month.
	counterTTL = 60 * 24 * time.Hour
)

type DailyStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Recorder struct {
	store kv.Store
}

func NewRecorder(store kv.Store) *Recorder {
	return &Recorder{store: store}
}

func dayKey(day string) string {
	return keyPrefix + day
}

// Increment adds one to the counter for the UTC day containing at.
// It is a read-then-write, so concurrent increments can be lost.
func (r *Recorder) Increment(ctx context.Context, at time.Time) error {
	day := at.UTC().Format(dateLayout)
	n, err := r.get(ctx, day)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, dayKey(day), []byte(strconv.Itoa(n+1)), counterTTL); err != nil {
		return fmt.Errorf("storing daily stat %s: %w", day, err)
	}
	return nil
}

// Window returns the counts for the `days` UTC days ending with the day of
// end, oldest first. Days without a counter report 0.
func (r *Recorder) Window(ctx context.Context, end time.Time, days int) ([]DailyStat, error) {
	end = end.UTC()
	out := make([]DailyStat, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i).Format(dateLayout)
		n, err := r.get(ctx, day)
		if err != nil {
			return nil, err
		}
		out = append(out, DailyStat{Date: day, Count: n})
	}
	return out, nil
}

func (r *Recorder) get(ctx context.Context, day string) (int, error) {
	data, err := r.store.Get(ctx, dayKey(day))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading daily stat %s: %w", day, err)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("parsing daily stat %s: %w", day, err)
	}
	return n, nil
}
