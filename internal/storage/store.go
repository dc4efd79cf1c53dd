package storage

import (
	"context"
	"errors"
	"net"
	"os"
)

var (
	// ErrStoreUnavailable is returned when the backend cannot be reached or fails the query.
	ErrStoreUnavailable = errors.New("storage: store unavailable")

	// ErrStoreTimeout is returned when a query does not complete before its deadline.
	ErrStoreTimeout = errors.New("storage: store timeout")
)

// Store represents the root storage interface.
type Store interface {
	Close() error
	UsageLogs() UsageLogStore
}

// UsageLogStore reads the per-day usage log. Writing records is the tracker's
// job and is not part of this interface.
type UsageLogStore interface {
	// ListUsageLogs returns every usage log recorded on date (YYYY-MM-DD),
	// in store order.
	ListUsageLogs(ctx context.Context, date string) ([]UsageLogRecord, error)
}

// Classify maps a backend error onto the store error taxonomy. Deadline and
// network timeout errors become ErrStoreTimeout, everything else
// ErrStoreUnavailable.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStoreTimeout), errors.Is(err, ErrStoreUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded), isNetTimeout(err):
		return errors.Join(ErrStoreTimeout, err)
	default:
		return errors.Join(ErrStoreUnavailable, err)
	}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
