package usage

import (
	"fmt"
	"time"

	"github.com/goodtune/watchdog/internal/storage"
	"github.com/mattn/go-runewidth"
)

const (
	secondsInMinute = 60
	secondsInHour   = 60 * secondsInMinute
	secondsInDay    = 24 * secondsInHour
	secondsInWeek   = 7 * secondsInDay
)

// FormatDuration renders a second count using the two largest units that
// apply, e.g. "2h 5m" or "1w 3d". Callers pass non-negative values.
func FormatDuration(seconds int64) string {
	switch {
	case seconds >= secondsInWeek:
		return fmt.Sprintf("%dw %dd", seconds/secondsInWeek, (seconds%secondsInWeek)/secondsInDay)
	case seconds >= secondsInDay:
		return fmt.Sprintf("%dd %dh", seconds/secondsInDay, (seconds%secondsInDay)/secondsInHour)
	case seconds >= secondsInHour:
		return fmt.Sprintf("%dh %dm", seconds/secondsInHour, (seconds%secondsInHour)/secondsInMinute)
	case seconds >= secondsInMinute:
		return fmt.Sprintf("%dm %ds", seconds/secondsInMinute, seconds%secondsInMinute)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Truncate shortens a label to width display cells followed by "...".
// Empty labels render as "?".
func Truncate(s string, width int) string {
	if s == "" {
		return "?"
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "") + "..."
}

// FormatDate renders the calendar date of t as YYYY-MM-DD in t's location.
func FormatDate(t time.Time) string {
	return t.Format(storage.DateLayout)
}

// ParseDate parses a YYYY-MM-DD date in the local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(storage.DateLayout, s, time.Local)
}
