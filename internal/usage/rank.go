package usage

import (
	"cmp"
	"fmt"
	"slices"
)

// Rank orders entries by time spent, descending, and keeps the first limit.
// Ties keep their input order. Entries past the limit are dropped rather than
// folded into an "other" bucket. The input slice is not modified.
func Rank(entries []UsageEntry, limit int) (RankedSnapshot, error) {
	if limit < 0 {
		return RankedSnapshot{}, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b UsageEntry) int {
		return cmp.Compare(b.TimeSpentSeconds, a.TimeSpentSeconds)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []UsageEntry{}
	}

	return RankedSnapshot{
		Entries: sorted,
		Limit:   limit,
	}, nil
}
