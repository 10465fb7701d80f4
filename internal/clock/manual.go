package clock

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a synchronous Scheduler driven by Advance. Callbacks run on the
// caller's goroutine, in deadline order.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	next    Handle
	pending map[Handle]manualEntry
}

type manualEntry struct {
	at  time.Duration
	seq Handle
	fn  func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[Handle]manualEntry)}
}

func (m *ManualScheduler) ScheduleOnce(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending[m.next] = manualEntry{at: m.now + d, seq: m.next, fn: fn}
	return m.next
}

func (m *ManualScheduler) Cancel(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[h]; !ok {
		return false
	}
	delete(m.pending, h)
	return true
}

// Advance moves virtual time forward by d and fires every callback that became due.
// Callbacks scheduled while advancing fire too if their deadline is within the window.
func (m *ManualScheduler) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		var due []manualEntry
		for _, e := range m.pending {
			if e.at <= target {
				due = append(due, e)
			}
		}
		if len(due) == 0 {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at != due[j].at {
				return due[i].at < due[j].at
			}
			return due[i].seq < due[j].seq
		})
		e := due[0]
		delete(m.pending, e.seq)
		m.now = e.at
		m.mu.Unlock()

		e.fn()
		fired++
	}
}

// Outstanding returns the number of pending callbacks.
func (m *ManualScheduler) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
