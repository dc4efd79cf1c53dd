package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goodtune/watchdog/internal/usage"
)

// Subscription is the part of a refresh subscription the view drives
type Subscription interface {
	Current() usage.RankedSnapshot
	SetDate(date time.Time)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	focusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Options configures the view
type Options struct {
	Palette       usage.Palette
	TruncateWidth int
	Clock         usage.Clock
}

// Model is the bubbletea model rendering ranked usage
type Model struct {
	sub       Subscription
	feed      *Feed
	selection *usage.Selection
	palette   usage.Palette
	truncate  int
	clock     usage.Clock

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	snapshot usage.RankedSnapshot
	date     time.Time
	loaded   bool
	lastErr  error
	width    int
}

// New creates the view for sub. feed must be the one whose callbacks were
// registered with the subscription.
func New(sub Subscription, feed *Feed, selection *usage.Selection, opts Options) Model {
	if opts.TruncateWidth <= 0 {
		opts.TruncateWidth = 15
	}
	if opts.Clock == nil {
		opts.Clock = usage.RealClock{}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = focusStyle

	current := sub.Current()

	return Model{
		sub:       sub,
		feed:      feed,
		selection: selection,
		palette:   opts.Palette,
		truncate:  opts.TruncateWidth,
		clock:     opts.Clock,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   s,
		snapshot:  current,
		date:      current.Date,
		width:     80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case SnapshotMsg:
		// Until the switched-to date publishes, late results for the old one are dropped
		if !m.loaded && !msg.Snapshot.Date.Equal(m.date) {
			return m, m.feed.wait()
		}
		m.snapshot = msg.Snapshot
		m.date = msg.Snapshot.Date
		m.loaded = true
		m.lastErr = nil
		return m, m.feed.wait()

	case RefreshErrorMsg:
		if !m.loaded && !msg.Date.Equal(m.date) {
			return m, m.feed.wait()
		}
		m.lastErr = msg.Error
		return m, m.feed.wait()

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Down):
			m.move(1)

		case key.Matches(msg, m.keys.Up):
			m.move(-1)

		case key.Matches(msg, m.keys.Clear):
			m.selection.Leave()

		case key.Matches(msg, m.keys.PrevDay):
			return m.switchDate(m.date.AddDate(0, 0, -1))

		case key.Matches(msg, m.keys.NextDay):
			return m.switchDate(m.date.AddDate(0, 0, 1))

		case key.Matches(msg, m.keys.Today):
			return m.switchDate(m.clock.Now())
		}
	}

	return m, nil
}

// move shifts the highlight by delta within the current snapshot
func (m Model) move(delta int) {
	n := len(m.snapshot.Entries)
	if n == 0 {
		return
	}

	i, ok := m.selection.Current()
	switch {
	case !ok && delta > 0:
		i = 0
	case !ok:
		i = n - 1
	default:
		i += delta
	}
	m.selection.Enter(max(0, min(i, n-1)))
}

func (m Model) switchDate(date time.Time) (tea.Model, tea.Cmd) {
	y, mo, d := date.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, date.Location())
	if day.Equal(m.date) {
		return m, nil
	}
	m.date = day
	m.loaded = false
	m.sub.SetDate(day)
	return m, m.spinner.Tick
}

func (m Model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("Usage for %s", usage.FormatDate(m.date))
	if total := m.snapshot.TotalSeconds(); total > 0 && m.loaded {
		header += mutedStyle.Render(" · total " + usage.FormatDuration(total))
	}
	if !m.loaded {
		header += " " + m.spinner.View()
	}
	b.WriteString(titleStyle.Render(header) + "\n\n")

	if len(m.snapshot.Entries) == 0 {
		b.WriteString(mutedStyle.Italic(true).Render("No usage recorded") + "\n")
	} else {
		b.WriteString(m.renderEntries())
	}

	if m.lastErr != nil {
		b.WriteString("\n" + errorStyle.Render("stale: "+m.lastErr.Error()) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

// renderEntries draws one swatch, label and proportional bar per entry
func (m Model) renderEntries() string {
	var b strings.Builder

	highlighted, hasHighlight := m.selection.Current()
	maxSeconds := m.snapshot.Entries[0].TimeSpentSeconds
	labelWidth := m.truncate + 3
	barWidth := max(10, m.width-labelWidth-16)

	for i, e := range m.snapshot.Entries {
		color := lipgloss.Color(string(m.palette.At(i)))
		swatch := lipgloss.NewStyle().Background(color).Render("  ")

		if hasHighlight && i == highlighted {
			label := fmt.Sprintf("%s (%s) %s",
				orUnknown(e.WindowName), orUnknown(e.ExecutableName), usage.FormatDuration(e.TimeSpentSeconds))
			b.WriteString(swatch + " " + focusStyle.Render(label) + "\n")
			continue
		}

		label := lipgloss.NewStyle().Width(labelWidth).Render(usage.Truncate(e.WindowName, m.truncate))
		bar := ""
		if maxSeconds > 0 {
			n := int(e.TimeSpentSeconds * int64(barWidth) / maxSeconds)
			bar = lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", n))
		}
		b.WriteString(swatch + " " + label + " " + bar + "\n")
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// Run starts the program and blocks until the user quits
func Run(m Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	_, err := p.Run()
	return err
}
