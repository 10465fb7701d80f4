package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-live-client/internal/clock"
	"github.com/park285/chess-live-client/internal/present"
	"github.com/park285/chess-live-client/internal/protocol"
	"github.com/park285/chess-live-client/internal/transport"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 5 * time.Second
)

type job func(s *Session) ([]Effect, error)

// Runner owns a Session and is its only writer. Transport events, timer ticks and local
// commands are queued and applied one at a time on the goroutine running Run.
type Runner struct {
	sess *Session
	tr   transport.Transport
	sink present.Sink
	fmt  Formatter
	log  *zap.Logger

	sched          clock.Scheduler
	interval       time.Duration
	exitOnGameOver bool
	sendTimeout    time.Duration

	jobs chan job
	done chan struct{}

	lines       atomic.Int64
	parseErrors atomic.Int64
	anomalies   atomic.Int64
}

type RunnerOption func(*Runner)

// ExitOnGameOver makes Run return once the game ends instead of waiting for the next
// pairing or the connection to close.
func ExitOnGameOver(on bool) RunnerOption { return func(r *Runner) { r.exitOnGameOver = on } }

func WithScheduler(s clock.Scheduler) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.sched = s
		}
	}
}

func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithFormatter(f Formatter) RunnerOption {
	return func(r *Runner) {
		if f != nil {
			r.fmt = f
		}
	}
}

// Stats are counters readable from any goroutine.
type Stats struct {
	Lines       int64 `json:"lines"`
	ParseErrors int64 `json:"parse_errors"`
	Anomalies   int64 `json:"anomalies"`
}

func NewRunner(cfg Config, tr transport.Transport, sink present.Sink, opts ...RunnerOption) (*Runner, error) {
	if tr == nil {
		return nil, errors.New("runner: nil transport")
	}
	if sink == nil {
		sink = present.Nop{}
	}
	r := &Runner{
		tr:          tr,
		sink:        sink,
		fmt:         &CatalogFormatter{},
		log:         zap.NewNop(),
		interval:    clock.DefaultInterval,
		sendTimeout: defaultSendTimeout,
		jobs:        make(chan job, defaultQueueSize),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sched == nil {
		r.sched = clock.NewScheduler(nil)
	}
	sess, err := New(cfg, r.sched, r.interval, r.postTick)
	if err != nil {
		return nil, err
	}
	r.sess = sess
	return r, nil
}

// postTick runs on the scheduler's goroutine and only queues the tick.
func (r *Runner) postTick(gen uint64) {
	r.enqueue(func(s *Session) ([]Effect, error) { return s.Apply(Tick{Gen: gen}) })
}

func (r *Runner) enqueue(j job) bool {
	select {
	case r.jobs <- j:
		return true
	case <-r.done:
		return false
	}
}

// Run processes events until ctx is cancelled, the transport closes, or (with
// ExitOnGameOver) the game ends. The session is torn down on return.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	events := r.tr.Events()
	for {
		select {
		case <-ctx.Done():
			r.teardown(ctx)
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				ev = transport.Closed{}
			}
			r.handle(ctx, r.inputFor(ev))

		case j := <-r.jobs:
			out, err := j(r.sess)
			r.dispatch(ctx, out)
			r.report(err, "")
		}

		switch phase := r.sess.Phase(); {
		case phase == PhaseDisconnected:
			r.teardown(ctx)
			return nil
		case phase == PhaseGameOver && r.exitOnGameOver:
			r.teardown(ctx)
			return nil
		}
	}
}

func (r *Runner) inputFor(ev transport.Event) Input {
	switch ev := ev.(type) {
	case transport.Connected:
		return Connected{}
	case transport.LineReceived:
		r.lines.Add(1)
		return LineReceived{Line: ev.Line}
	case transport.Closed:
		return Closed{Err: ev.Err}
	}
	return nil
}

func (r *Runner) handle(ctx context.Context, in Input) {
	if in == nil {
		return
	}
	out, err := r.sess.Apply(in)
	r.dispatch(ctx, out)
	line := ""
	if lr, ok := in.(LineReceived); ok {
		line = lr.Line
	}
	r.report(err, line)
}

func (r *Runner) report(err error, line string) {
	if err == nil {
		return
	}
	var pe *protocol.ParseError
	switch {
	case errors.As(err, &pe):
		r.parseErrors.Add(1)
		r.log.Warn("protocol_parse_error",
			zap.String("kind", pe.Kind.String()),
			zap.String("line", line),
			zap.Error(err),
		)
	case IsAnomaly(err, ""):
		r.anomalies.Add(1)
		r.log.Warn("session_anomaly",
			zap.String("phase", r.sess.Phase().String()),
			zap.Error(err),
		)
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrNotInGame):
		r.log.Debug("session_command_ignored", zap.Error(err))
	default:
		r.log.Error("session_apply", zap.Error(err))
	}
}

func (r *Runner) dispatch(ctx context.Context, effects []Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case Send:
			r.send(ctx, e.Command)
		case Status:
			r.sink.OnStatus(r.fmt.Status(e))
		case Board:
			r.sink.OnBoard(e.Position)
		case ClockDisplay:
			r.sink.OnClockDisplay(e.White, e.Black, e.WhiteToMove)
		case Players:
			if o, ok := r.sink.(present.PlayersObserver); ok {
				o.OnPlayers(e.White, e.Black)
			}
		case MoveSound:
			r.sink.OnMoveSound()
		case GameOverSound:
			r.sink.OnGameOverSound(e.Reason)
		case Orientation:
			r.sink.OnOrientation(e.White)
		case YourTurn:
			if o, ok := r.sink.(present.TurnObserver); ok {
				o.OnYourTurn(e.Position, e.White)
			}
		case MoveSent:
			if o, ok := r.sink.(present.MoveObserver); ok {
				o.OnMoveSent(e.From, e.To)
			}
		}
	}
}

func (r *Runner) send(ctx context.Context, cmd protocol.Command) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.sendTimeout)
	defer cancel()
	line := protocol.Encode(cmd)
	if err := r.tr.Send(sctx, line); err != nil {
		r.log.Warn("transport_send_failed", zap.String("verb", string(cmd.Verb())), zap.Error(err))
		return
	}
	r.log.Debug("transport_send", zap.String("line", line))
}

func (r *Runner) teardown(ctx context.Context) {
	if r.sess.closed {
		return
	}
	if out, err := r.sess.Leave(); err == nil {
		r.dispatch(ctx, out)
	}
	r.sess.Teardown()
}

// call runs fn on the runner goroutine and waits for it to finish.
func (r *Runner) call(ctx context.Context, fn job) error {
	errc := make(chan error, 1)
	wrapped := func(s *Session) ([]Effect, error) {
		out, err := fn(s)
		errc <- err
		return out, nil
	}
	select {
	case r.jobs <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrSessionClosed
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// TrySubmitMove forwards a local move intent and returns the session's verdict. A
// rejection is reported through the verdict, not the error.
func (r *Runner) TrySubmitMove(ctx context.Context, m MoveIntent) (Verdict, error) {
	var v Verdict
	err := r.call(ctx, func(s *Session) ([]Effect, error) {
		var out []Effect
		v, out = s.TrySubmitMove(m)
		return out, nil
	})
	if err != nil {
		return Verdict{Reason: RejectClosed}, err
	}
	if !v.Accepted {
		r.log.Debug("move_rejected",
			zap.String("from", m.From),
			zap.String("to", m.To),
			zap.String("reason", v.Reason),
		)
	}
	return v, nil
}

func (r *Runner) Resign(ctx context.Context) error {
	return r.call(ctx, func(s *Session) ([]Effect, error) { return s.Resign() })
}

func (r *Runner) Say(ctx context.Context, text string) error {
	return r.call(ctx, func(s *Session) ([]Effect, error) { return s.Say(text) })
}

func (r *Runner) Leave(ctx context.Context) error {
	return r.call(ctx, func(s *Session) ([]Effect, error) { return s.Leave() })
}

// Snapshot copies the session view on the runner goroutine.
func (r *Runner) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := r.call(ctx, func(s *Session) ([]Effect, error) {
		v = s.Snapshot()
		return nil, nil
	})
	return v, err
}

// RejectText renders a rejection reason for display.
func (r *Runner) RejectText(reason string) string { return r.fmt.Reject(reason) }

func (r *Runner) Stats() Stats {
	return Stats{
		Lines:       r.lines.Load(),
		ParseErrors: r.parseErrors.Load(),
		Anomalies:   r.anomalies.Load(),
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }
