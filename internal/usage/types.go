package usage

import (
	"errors"
	"time"
)

var (
	// ErrMalformedRecord marks a store record that cannot become a UsageEntry.
	ErrMalformedRecord = errors.New("usage: malformed record")

	// ErrInvalidLimit is returned by Rank for a negative limit.
	ErrInvalidLimit = errors.New("usage: invalid limit")

	// ErrInvalidPaletteSize is returned by NewPalette for a non-positive count.
	ErrInvalidPaletteSize = errors.New("usage: invalid palette size")
)

// UsageEntry is one window's focus time on a single day.
type UsageEntry struct {
	LogID            int64     `json:"log_id"`
	WindowName       string    `json:"window_name"`
	ExecutableName   string    `json:"executable_name"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	Date             time.Time `json:"date"`
}

// RankedSnapshot is the published result of one refresh cycle. Entries are
// ordered by time spent, descending, and never exceed Limit.
type RankedSnapshot struct {
	Date    time.Time    `json:"date"`
	Entries []UsageEntry `json:"entries"`
	Limit   int          `json:"limit"`
}

// TotalSeconds sums time spent across the snapshot's entries.
func (s RankedSnapshot) TotalSeconds() int64 {
	var total int64
	for _, e := range s.Entries {
		total += e.TimeSpentSeconds
	}
	return total
}
