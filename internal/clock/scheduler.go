package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler runs one-shot callbacks after a delay. Callbacks run on the scheduler's
// goroutine and must not block.
type Scheduler interface {
	ScheduleOnce(d time.Duration, fn func()) Handle
	Cancel(h Handle) bool
}

// ClockworkScheduler implements Scheduler on top of a clockwork.Clock so tests can
// drive it with a fake clock.
type ClockworkScheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	next   Handle
	timers map[Handle]clockwork.Timer
}

func NewScheduler(c clockwork.Clock) *ClockworkScheduler {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &ClockworkScheduler{clock: c, timers: make(map[Handle]clockwork.Timer)}
}

func (s *ClockworkScheduler) ScheduleOnce(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	// the callback takes the lock, so it cannot observe the map before the timer is stored
	s.timers[h] = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return h
}

// Cancel stops h. It reports false when h already fired or was cancelled.
func (s *ClockworkScheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[h]
	if !ok {
		return false
	}
	delete(s.timers, h)
	t.Stop()
	return true
}

// Outstanding returns the number of callbacks that have neither fired nor been cancelled.
func (s *ClockworkScheduler) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
