package present

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one published presentation update.
type Event struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	At   time.Time `json:"at"`
	View View      `json:"view"`
}

// Event types.
const (
	EventStatus   = "status"
	EventBoard    = "board"
	EventClock    = "clock"
	EventMove     = "move"
	EventGameOver = "game_over"
	EventPlayers  = "players"
	EventTurn     = "your_turn"
	EventMoveSent = "move_sent"
)

// asyncQueue hands events to a single worker goroutine. Pushing never blocks: when the
// buffer is full the event is dropped and counted.
type asyncQueue struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
	done    chan struct{}
}

func newAsyncQueue(size int, handle func(Event)) *asyncQueue {
	if size <= 0 {
		size = 256
	}
	q := &asyncQueue{ch: make(chan Event, size), done: make(chan struct{})}
	go func() {
		defer close(q.done)
		for ev := range q.ch {
			handle(ev)
		}
	}()
	return q
}

func (q *asyncQueue) push(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// close stops accepting events and waits for the worker to drain.
func (q *asyncQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *asyncQueue) Dropped() int64 { return q.dropped.Load() }
