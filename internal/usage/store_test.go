package usage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goodtune/watchdog/internal/storage"
)

// fakeStore is a scripted UsageLogStore.
type fakeStore struct {
	mu      sync.Mutex
	records map[string][]storage.UsageLogRecord
	errs    map[string]error
	gates   map[string]chan struct{} // fetch blocks until closed, ignoring ctx
	calls   []string

	delay       time.Duration
	hang        atomic.Bool // fetch blocks until ctx is done
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string][]storage.UsageLogRecord),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeStore) set(date string, records ...storage.UsageLogRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[date] = records
}

func (f *fakeStore) fail(date string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[date] = err
}

func (f *fakeStore) gate(date string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[date] = ch
	return ch
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) called(date string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == date {
			return true
		}
	}
	return false
}

func (f *fakeStore) ListUsageLogs(ctx context.Context, date string) ([]storage.UsageLogRecord, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, date)
	gate := f.gates[date]
	records := append([]storage.UsageLogRecord(nil), f.records[date]...)
	err := f.errs[date]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.hang.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
