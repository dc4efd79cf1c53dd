package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goodtune/watchdog/internal/usage"
)

type fakeSubscription struct {
	current usage.RankedSnapshot
	dates   []time.Time
}

func (f *fakeSubscription) Current() usage.RankedSnapshot { return f.current }
func (f *fakeSubscription) SetDate(d time.Time)           { f.dates = append(f.dates, d) }

func testDate() time.Time {
	return time.Date(2024, time.March, 5, 0, 0, 0, 0, time.Local)
}

func testSnapshot() usage.RankedSnapshot {
	return usage.RankedSnapshot{
		Date:  testDate(),
		Limit: 10,
		Entries: []usage.UsageEntry{
			{LogID: 1, WindowName: "Visual Studio Code - main.go", ExecutableName: "code", TimeSpentSeconds: 3700},
			{LogID: 2, WindowName: "Terminal", ExecutableName: "kitty", TimeSpentSeconds: 600},
			{LogID: 3, WindowName: "", ExecutableName: "", TimeSpentSeconds: 30},
		},
	}
}

func newTestModel(t *testing.T) (Model, *fakeSubscription, *usage.Selection) {
	t.Helper()

	palette, err := usage.NewSeededPalette(4, 1)
	if err != nil {
		t.Fatal(err)
	}

	sub := &fakeSubscription{current: usage.RankedSnapshot{Date: testDate(), Entries: []usage.UsageEntry{}}}
	sel := usage.NewSelection()
	m := New(sub, NewFeed(), sel, Options{
		Palette:       palette,
		TruncateWidth: 15,
		Clock:         usage.NewTestClock(testDate().AddDate(0, 0, 2).Add(9 * time.Hour)),
	})

	return m, sub, sel
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelRendersSnapshot(t *testing.T) {
	m, _, _ := newTestModel(t)

	if !strings.Contains(m.View(), "No usage recorded") {
		t.Error("Expected empty state before the first snapshot")
	}

	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})
	view := m.View()

	for _, want := range []string{"2024-03-05", "Visual Studio C...", "Terminal", "?", "1h 12m"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
	if strings.Contains(view, "main.go") {
		t.Error("Expected non-highlighted label to be truncated")
	}
}

func TestModelHighlightShowsFullDetails(t *testing.T) {
	m, _, sel := newTestModel(t)
	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if i, ok := sel.Current(); !ok || i != 0 {
		t.Fatalf("Expected first entry highlighted, got %d, %v", i, ok)
	}

	view := m.View()
	if !strings.Contains(view, "Visual Studio Code - main.go (code) 1h 1m") {
		t.Errorf("Expected full label with duration, got:\n%s", view)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if i, _ := sel.Current(); i != 2 {
		t.Errorf("Expected highlight clamped to last entry, got %d", i)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if i, _ := sel.Current(); i != 1 {
		t.Errorf("Expected highlight to move up, got %d", i)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := sel.Current(); ok {
		t.Error("Expected esc to clear the highlight")
	}
	if !strings.Contains(m.View(), "Visual Studio C...") {
		t.Error("Expected truncated label after clearing")
	}
}

func TestModelUpWithoutHighlightPicksLast(t *testing.T) {
	m, _, sel := newTestModel(t)
	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})

	update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if i, ok := sel.Current(); !ok || i != 2 {
		t.Errorf("Expected last entry highlighted, got %d, %v", i, ok)
	}
}

func TestModelDateNavigation(t *testing.T) {
	m, sub, _ := newTestModel(t)
	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})

	want := []string{"2024-03-04", "2024-03-05", "2024-03-07"}
	if len(sub.dates) != len(want) {
		t.Fatalf("Expected %d SetDate calls, got %d", len(want), len(sub.dates))
	}
	for i, d := range sub.dates {
		if got := usage.FormatDate(d); got != want[i] {
			t.Errorf("SetDate %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestModelIgnoresLateResultsForPreviousDate(t *testing.T) {
	m, sub, _ := newTestModel(t)
	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	// Results for the day we just left are still queued in the feed
	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})
	m = update(t, m, RefreshErrorMsg{Date: testDate(), Error: errors.New("storage: store timeout")})

	if m.loaded {
		t.Error("Expected the model to keep waiting for the new date")
	}
	view := m.View()
	if !strings.Contains(view, "Usage for 2024-03-04") {
		t.Errorf("Expected header to stay on the new date, got:\n%s", view)
	}
	if strings.Contains(view, "stale:") {
		t.Error("Expected an error for the old date not to mark the new one stale")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := usage.FormatDate(sub.dates[len(sub.dates)-1]); got != "2024-03-03" {
		t.Errorf("Expected to step back from the new date, SetDate got %s", got)
	}

	prev := testSnapshot()
	prev.Date = testDate().AddDate(0, 0, -2)
	m = update(t, m, SnapshotMsg{Snapshot: prev})
	if !m.loaded || !m.date.Equal(prev.Date) {
		t.Errorf("Expected snapshot for the requested date to load, date %s", usage.FormatDate(m.date))
	}
}

func TestModelShowsStaleError(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})
	m = update(t, m, RefreshErrorMsg{Date: testDate(), Error: errors.New("storage: store timeout")})

	view := m.View()
	if !strings.Contains(view, "stale: storage: store timeout") {
		t.Error("Expected stale marker in view")
	}
	if !strings.Contains(view, "Terminal") {
		t.Error("Expected previous snapshot to stay visible")
	}

	m = update(t, m, SnapshotMsg{Snapshot: testSnapshot()})
	if strings.Contains(m.View(), "stale:") {
		t.Error("Expected stale marker to clear on publish")
	}
}

func TestModelQuit(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestFeedKeepsLatestSnapshot(t *testing.T) {
	f := NewFeed()

	first := testSnapshot()
	second := testSnapshot()
	second.Entries = second.Entries[:1]

	f.OnSnapshot(first)
	f.OnSnapshot(second)

	msg, ok := f.wait()().(SnapshotMsg)
	if !ok {
		t.Fatal("Expected SnapshotMsg")
	}
	if len(msg.Snapshot.Entries) != 1 {
		t.Errorf("Expected latest snapshot, got %d entries", len(msg.Snapshot.Entries))
	}
}

func TestFeedDeliversErrors(t *testing.T) {
	f := NewFeed()
	f.OnError(testDate(), errors.New("boom"))
	f.OnError(testDate(), errors.New("dropped"))

	msg, ok := f.wait()().(RefreshErrorMsg)
	if !ok {
		t.Fatal("Expected RefreshErrorMsg")
	}
	if msg.Error.Error() != "boom" {
		t.Errorf("Expected first pending error, got %v", msg.Error)
	}
}
