package usage

import (
	"fmt"

	"github.com/goodtune/watchdog/internal/storage"
)

// Drop kinds reported by MalformedRecordError.Kind
const (
	KindMissingField = "missing_field"
	KindNegativeTime = "negative_time"
	KindInvalidDate  = "invalid_date"
	KindDuplicateID  = "duplicate_id"
)

// MalformedRecordError describes why a record was dropped.
type MalformedRecordError struct {
	LogID  *int64
	Kind   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.LogID != nil {
		return fmt.Sprintf("malformed usage record %d: %s", *e.LogID, e.Reason)
	}
	return fmt.Sprintf("malformed usage record: %s", e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrMalformedRecord).
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// Normalize converts a raw store record into a UsageEntry.
func Normalize(raw storage.UsageLogRecord) (UsageEntry, error) {
	malformed := func(kind, reason string) (UsageEntry, error) {
		return UsageEntry{}, &MalformedRecordError{LogID: raw.LogID, Kind: kind, Reason: reason}
	}

	switch {
	case raw.LogID == nil:
		return malformed(KindMissingField, "missing log_id")
	case raw.WindowName == nil:
		return malformed(KindMissingField, "missing window_name")
	case raw.ExecutableName == nil:
		return malformed(KindMissingField, "missing executable_name")
	case raw.TimeSpent == nil:
		return malformed(KindMissingField, "missing time_spent")
	case raw.Date == nil:
		return malformed(KindMissingField, "missing date")
	}

	if *raw.TimeSpent < 0 {
		return malformed(KindNegativeTime, fmt.Sprintf("negative time_spent %d", *raw.TimeSpent))
	}

	date, err := ParseDate(*raw.Date)
	if err != nil {
		return malformed(KindInvalidDate, fmt.Sprintf("invalid date %q", *raw.Date))
	}

	return UsageEntry{
		LogID:            *raw.LogID,
		WindowName:       *raw.WindowName,
		ExecutableName:   *raw.ExecutableName,
		TimeSpentSeconds: *raw.TimeSpent,
		Date:             date,
	}, nil
}

// NormalizeBatch normalizes a fetched set, dropping malformed records. A log
// id seen earlier in the batch makes later duplicates malformed. The returned
// errors describe each dropped record; they never abort the batch.
func NormalizeBatch(records []storage.UsageLogRecord) ([]UsageEntry, []error) {
	entries := make([]UsageEntry, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	var dropped []error

	for _, raw := range records {
		entry, err := Normalize(raw)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		if _, dup := seen[entry.LogID]; dup {
			dropped = append(dropped, &MalformedRecordError{LogID: raw.LogID, Kind: KindDuplicateID, Reason: "duplicate log_id"})
			continue
		}
		seen[entry.LogID] = struct{}{}
		entries = append(entries, entry)
	}

	return entries, dropped
}
