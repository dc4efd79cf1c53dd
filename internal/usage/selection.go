package usage

import "sync/atomic"

// Selection tracks which ranked entry, if any, is highlighted. Every
// transition is an unconditional overwrite, so a publish-driven Reset always
// wins over a concurrent Enter. The zero value has nothing highlighted.
type Selection struct {
	// index+1 of the highlighted entry, 0 when none.
	slot atomic.Int64
}

// NewSelection returns a Selection with nothing highlighted.
func NewSelection() *Selection {
	return &Selection{}
}

// Enter highlights index, replacing any prior highlight.
func (s *Selection) Enter(index int) {
	if index < 0 {
		s.Leave()
		return
	}
	s.slot.Store(int64(index) + 1)
}

// Leave clears the highlight.
func (s *Selection) Leave() {
	s.slot.Store(0)
}

// Reset clears the highlight because the snapshot it indexed was replaced.
func (s *Selection) Reset() {
	s.slot.Store(0)
}

// Current returns the highlighted index and whether one is set.
func (s *Selection) Current() (int, bool) {
	v := s.slot.Load()
	if v == 0 {
		return 0, false
	}
	return int(v - 1), true
}
