package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goodtune/watchdog/internal/usage"
)

// Message types delivered from the refresh subscription
type (
	// SnapshotMsg carries a newly published snapshot
	SnapshotMsg struct {
		Snapshot usage.RankedSnapshot
	}

	// RefreshErrorMsg reports a failed refresh; the previous snapshot stays on screen
	RefreshErrorMsg struct {
		Date  time.Time
		Error error
	}
)

// Feed bridges subscription callbacks, which run on the scheduler's
// goroutine, into bubbletea commands. Only the newest pending snapshot is
// kept so a slow terminal never stalls the scheduler.
type Feed struct {
	snapshots chan usage.RankedSnapshot
	errs      chan RefreshErrorMsg
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{
		snapshots: make(chan usage.RankedSnapshot, 1),
		errs:      make(chan RefreshErrorMsg, 1),
	}
}

// OnSnapshot is a usage.Scheduler snapshot callback
func (f *Feed) OnSnapshot(s usage.RankedSnapshot) {
	for {
		select {
		case f.snapshots <- s:
			return
		default:
			// Replace the stale pending snapshot
			select {
			case <-f.snapshots:
			default:
			}
		}
	}
}

// OnError is a usage.WithErrorHandler callback
func (f *Feed) OnError(date time.Time, err error) {
	select {
	case f.errs <- RefreshErrorMsg{Date: date, Error: err}:
	default:
		// An error is already pending; one is enough to mark staleness
	}
}

// wait blocks for the next snapshot or error
func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-f.snapshots:
			return SnapshotMsg{Snapshot: s}
		case e := <-f.errs:
			return e
		}
	}
}
