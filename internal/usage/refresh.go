package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/watchdog/internal/metrics"
	"github.com/goodtune/watchdog/internal/storage"
	"github.com/rs/zerolog"
)

// Refresh runs one fetch, normalize and rank cycle for the calendar date of
// date. Malformed records are logged and dropped; store failures are returned
// classified as storage.ErrStoreUnavailable or storage.ErrStoreTimeout.
func Refresh(ctx context.Context, store storage.UsageLogStore, date time.Time, limit int, logger zerolog.Logger) (RankedSnapshot, error) {
	day := FormatDate(date)

	started := time.Now()
	records, err := store.ListUsageLogs(ctx, day)
	metrics.FetchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return RankedSnapshot{}, fmt.Errorf("failed to fetch usage logs for %s: %w", day, storage.Classify(err))
	}

	entries, dropped := NormalizeBatch(records)
	for _, err := range dropped {
		kind := "other"
		var mre *MalformedRecordError
		if errors.As(err, &mre) {
			kind = mre.Kind
		}
		metrics.RecordsDropped.WithLabelValues(kind).Inc()
		logger.Warn().
			Err(err).
			Str("date", day).
			Msg("Dropped usage record")
	}

	snapshot, err := Rank(entries, limit)
	if err != nil {
		return RankedSnapshot{}, err
	}
	snapshot.Date = midnight(date)

	logger.Debug().
		Str("date", day).
		Int("fetched", len(records)).
		Int("dropped", len(dropped)).
		Int("ranked", len(snapshot.Entries)).
		Msg("Refreshed usage snapshot")

	return snapshot, nil
}

// midnight truncates t to the start of its calendar day in t's location.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
