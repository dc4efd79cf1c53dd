package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goodtune/watchdog/internal/metrics"
	"github.com/goodtune/watchdog/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is the nominal period between refresh cycles
	DefaultInterval = time.Second

	// DefaultFetchTimeout bounds a single store query
	DefaultFetchTimeout = 5 * time.Second
)

// Config holds scheduler configuration
type Config struct {
	Limit        int
	Interval     time.Duration
	FetchTimeout time.Duration
	// FollowToday moves subscriptions watching the current local date on to
	// the next one at midnight. Subscriptions set to another date stay put.
	FollowToday bool
	// Clock defaults to RealClock
	Clock Clock
}

// Scheduler keeps ranked snapshots current by polling the usage log store.
type Scheduler struct {
	store     storage.UsageLogStore
	selection *Selection
	config    Config
	logger    zerolog.Logger
	clock     Clock
}

// NewScheduler creates a new refresh scheduler. selection is reset on every
// publish; pass nil when no view tracks a highlight.
func NewScheduler(store storage.UsageLogStore, selection *Selection, config Config, logger zerolog.Logger) (*Scheduler, error) {
	if config.Limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, config.Limit)
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if selection == nil {
		selection = NewSelection()
	}
	if config.Clock == nil {
		config.Clock = RealClock{}
	}

	return &Scheduler{
		store:     store,
		selection: selection,
		config:    config,
		logger:    logger.With().Str("component", "refresh-scheduler").Logger(),
		clock:     config.Clock,
	}, nil
}

// Selection returns the highlight state reset by this scheduler.
func (s *Scheduler) Selection() *Selection {
	return s.selection
}

// SubscriptionOption customizes a subscription
type SubscriptionOption func(*Subscription)

// WithErrorHandler registers a callback for failed refresh cycles. The
// previously published snapshot stays current when it fires.
func WithErrorHandler(fn func(date time.Time, err error)) SubscriptionOption {
	return func(sub *Subscription) {
		sub.onError = fn
	}
}

// Start begins polling for date and delivers each ranked snapshot to
// onSnapshot. The first fetch is issued immediately.
func (s *Scheduler) Start(date time.Time, onSnapshot func(RankedSnapshot), opts ...SubscriptionOption) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	day := midnight(date)

	sub := &Subscription{
		id:         uuid.NewString(),
		scheduler:  s,
		onSnapshot: onSnapshot,
		date:       day,
		current: RankedSnapshot{
			Date:    day,
			Entries: []UsageEntry{},
			Limit:   s.config.Limit,
		},
		today:       midnight(s.clock.Now()),
		dateChanged: make(chan struct{}, 1),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sub)
	}
	sub.logger = s.logger.With().Str("subscription", sub.id).Logger()

	go sub.run(ctx)

	sub.logger.Info().
		Str("date", FormatDate(day)).
		Int("limit", s.config.Limit).
		Dur("interval", s.config.Interval).
		Msg("Refresh subscription started")

	return sub
}

// Subscription is one running poll loop. At most one fetch is in flight at a
// time, so snapshots are delivered in the order their fetches were issued.
type Subscription struct {
	id         string
	scheduler  *Scheduler
	onSnapshot func(RankedSnapshot)
	onError    func(time.Time, error)
	logger     zerolog.Logger

	mu      sync.RWMutex
	date    time.Time
	today   time.Time // local date at the last rollover check
	current RankedSnapshot

	publishMu   sync.Mutex
	dispatching atomic.Bool
	stopped     atomic.Bool

	dateChanged chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

// ID returns the subscription identifier used in logs.
func (sub *Subscription) ID() string {
	return sub.id
}

// Date returns the date currently being polled.
func (sub *Subscription) Date() time.Time {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	return sub.date
}

// Current returns the last published snapshot. Before the first successful
// refresh it is an empty snapshot for the subscribed date.
func (sub *Subscription) Current() RankedSnapshot {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	return sub.current
}

// SetDate switches the subscription to another calendar date and triggers an
// immediate fetch. Setting the current date is a no-op.
func (sub *Subscription) SetDate(date time.Time) {
	day := midnight(date)

	sub.mu.Lock()
	if sub.date.Equal(day) {
		sub.mu.Unlock()
		return
	}
	sub.date = day
	sub.mu.Unlock()

	sub.logger.Info().Str("date", FormatDate(day)).Msg("Subscription date changed")

	select {
	case sub.dateChanged <- struct{}{}:
	default:
	}
}

// Stop cancels the timer. No snapshot callback starts after Stop returns and
// the result of a fetch still in flight is discarded. Stop may be called from
// within a callback.
func (sub *Subscription) Stop() {
	if !sub.stopped.CompareAndSwap(false, true) {
		return
	}
	sub.cancel()

	// Wait out a callback that passed the stopped check on another goroutine.
	if !sub.dispatching.Load() {
		sub.publishMu.Lock()
		//nolint:staticcheck // empty critical section is the barrier
		sub.publishMu.Unlock()
	}

	sub.logger.Info().Msg("Refresh subscription stopped")
}

// Done is closed once the poll loop has exited.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// run is the main poll loop
func (sub *Subscription) run(ctx context.Context) {
	defer close(sub.done)

	s := sub.scheduler
	timer := time.NewTimer(0) // first fetch fires immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.dateChanged:
		case <-timer.C:
		}

		if s.config.FollowToday {
			sub.followToday()
		}

		started := s.clock.Now()
		sub.cycle(ctx)
		if sub.stopped.Load() {
			return
		}

		// A slow fetch that overran the interval is followed immediately.
		wait := s.config.Interval - s.clock.Now().Sub(started)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// followToday advances the subscription across midnight if it was
// watching the day that just ended.
func (sub *Subscription) followToday() {
	today := midnight(sub.scheduler.clock.Now())

	sub.mu.Lock()
	changed := false
	if !today.Equal(sub.today) {
		if sub.date.Equal(sub.today) {
			sub.date = today
			changed = true
		}
		sub.today = today
	}
	sub.mu.Unlock()

	if changed {
		sub.logger.Info().Str("date", FormatDate(today)).Msg("Date rolled over")
	}
}

// cycle performs one fetch, normalize, rank and publish sequence
func (sub *Subscription) cycle(ctx context.Context) {
	s := sub.scheduler
	date := sub.Date()

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	snapshot, err := Refresh(fetchCtx, s.store, date, s.config.Limit, sub.logger)
	cancel()

	if sub.stopped.Load() {
		metrics.RefreshesTotal.WithLabelValues("discarded").Inc()
		return
	}

	sub.mu.Lock()
	if !sub.date.Equal(date) {
		// The date moved while this fetch was in flight.
		sub.mu.Unlock()
		metrics.RefreshesTotal.WithLabelValues("discarded").Inc()
		sub.logger.Debug().
			Err(err).
			Str("date", FormatDate(date)).
			Msg("Discarding refresh for a replaced date")
		return
	}
	if err == nil {
		sub.current = snapshot
	}
	sub.mu.Unlock()

	if err != nil {
		sub.fail(date, err)
		return
	}
	sub.publish(snapshot)
}

// fail records a failed fetch and reports it to the error handler. The
// previous snapshot and the selection are left alone.
func (sub *Subscription) fail(date time.Time, err error) {
	sub.publishMu.Lock()
	defer sub.publishMu.Unlock()

	if sub.stopped.Load() {
		metrics.RefreshesTotal.WithLabelValues("discarded").Inc()
		return
	}

	result := "unavailable"
	if errors.Is(err, storage.ErrStoreTimeout) {
		result = "timeout"
	}
	metrics.RefreshesTotal.WithLabelValues(result).Inc()

	sub.logger.Error().
		Err(err).
		Str("date", FormatDate(date)).
		Msg("Refresh failed, keeping previous snapshot")

	if sub.onError == nil {
		return
	}
	sub.dispatching.Store(true)
	defer sub.dispatching.Store(false)
	sub.onError(date, err)
}

// publish resets the selection and hands the snapshot to the callback
func (sub *Subscription) publish(snapshot RankedSnapshot) {
	sub.publishMu.Lock()
	defer sub.publishMu.Unlock()

	if sub.stopped.Load() {
		metrics.RefreshesTotal.WithLabelValues("discarded").Inc()
		return
	}

	sub.scheduler.selection.Reset()

	metrics.RefreshesTotal.WithLabelValues("success").Inc()
	metrics.SnapshotEntries.Set(float64(len(snapshot.Entries)))
	metrics.TrackedSeconds.Set(float64(snapshot.TotalSeconds()))

	if sub.onSnapshot == nil {
		return
	}
	sub.dispatching.Store(true)
	defer sub.dispatching.Store(false)
	sub.onSnapshot(snapshot)
}
