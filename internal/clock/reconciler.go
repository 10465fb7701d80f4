package clock

import (
	"strconv"
	"time"

	"github.com/park285/chess-live-client/internal/protocol"
)

// DefaultInterval is the nominal tick length. Each tick removes exactly one second from
// the side to move regardless of the configured interval.
const DefaultInterval = time.Second

const tickDecrement = 1.0

// State is the reconciler's view of both clocks.
type State struct {
	White      float64
	Black      float64
	SideToMove protocol.Side
	Ticking    bool
}

// Display is the formatted clock pair handed to presentation.
type Display struct {
	White       string
	Black       string
	WhiteToMove bool
}

// Reconciler merges authoritative clock values with a local one-second countdown. It is
// not safe for concurrent use: the owning session serialises every call, and timer
// callbacks only report a generation through post.
type Reconciler struct {
	sched    Scheduler
	interval time.Duration
	post     func(gen uint64)

	state  State
	gen    uint64
	handle Handle
}

func NewReconciler(sched Scheduler, interval time.Duration, post func(gen uint64)) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if post == nil {
		post = func(uint64) {}
	}
	return &Reconciler{sched: sched, interval: interval, post: post}
}

// OnAuthoritativeUpdate overwrites both clocks and the side to move. The timer is left
// as it is.
func (r *Reconciler) OnAuthoritativeUpdate(white, black float64, side protocol.Side) {
	r.state.White = white
	r.state.Black = black
	r.state.SideToMove = side
}

// SetSide changes only the side to move.
func (r *Reconciler) SetSide(side protocol.Side) { r.state.SideToMove = side }

// Start arms the timer. Calling it while ticking is a no-op.
func (r *Reconciler) Start() {
	if r.state.Ticking {
		return
	}
	r.gen++
	r.state.Ticking = true
	r.arm()
}

// Stop cancels the outstanding timer, if any. A tick already queued by that timer is
// recognised as stale by Tick.
func (r *Reconciler) Stop() {
	if !r.state.Ticking {
		return
	}
	r.sched.Cancel(r.handle)
	r.handle = 0
	r.gen++
	r.state.Ticking = false
}

func (r *Reconciler) Reset() {
	r.Stop()
	r.Start()
}

// Tick applies one elapsed interval reported by the timer armed for gen. The bool is
// false when the tick was stale and nothing changed.
func (r *Reconciler) Tick(gen uint64) (Display, bool) {
	if !r.state.Ticking || gen != r.gen {
		return r.Display(), false
	}
	if r.state.SideToMove == protocol.White {
		r.state.White -= tickDecrement
	} else {
		r.state.Black -= tickDecrement
	}
	r.arm()
	return r.Display(), true
}

func (r *Reconciler) State() State { return r.state }

func (r *Reconciler) Generation() uint64 { return r.gen }

func (r *Reconciler) Display() Display {
	return Display{
		White:       FormatSeconds(r.state.White),
		Black:       FormatSeconds(r.state.Black),
		WhiteToMove: r.state.SideToMove == protocol.White,
	}
}

func (r *Reconciler) arm() {
	gen := r.gen
	r.handle = r.sched.ScheduleOnce(r.interval, func() { r.post(gen) })
}

// FormatSeconds renders seconds with two decimals; negative values are kept.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
