package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-live-client/internal/clock"
	"github.com/park285/chess-live-client/internal/msgcat"
	"github.com/park285/chess-live-client/internal/present"
	"github.com/park285/chess-live-client/internal/transport"
)

type fakeTransport struct {
	events chan transport.Event
	sentCh chan string

	mu   sync.Mutex
	sent []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan transport.Event, 16), sentCh: make(chan string, 32)}
}

func (f *fakeTransport) Send(_ context.Context, line string) error {
	f.mu.Lock()
	f.sent = append(f.sent, line)
	f.mu.Unlock()
	f.sentCh <- line
	return nil
}

func (f *fakeTransport) Events() <-chan transport.Event { return f.events }
func (f *fakeTransport) Close(context.Context) error    { return nil }

func (f *fakeTransport) line(s string) { f.events <- transport.LineReceived{Line: s} }

type recordingSink struct {
	present.Nop
	status chan string
	clocks chan ClockDisplay
	turns  chan string
	moves  chan string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		status: make(chan string, 64),
		clocks: make(chan ClockDisplay, 64),
		turns:  make(chan string, 4),
		moves:  make(chan string, 4),
	}
}

func (s *recordingSink) OnStatus(text string) { s.status <- text }

func (s *recordingSink) OnClockDisplay(white, black string, whiteToMove bool) {
	s.clocks <- ClockDisplay{White: white, Black: black, WhiteToMove: whiteToMove}
}

func (s *recordingSink) OnYourTurn(position string, _ bool) { s.turns <- position }

func (s *recordingSink) OnMoveSent(from, to string) { s.moves <- from + "-" + to }

func waitFor[T comparable](t *testing.T, ch <-chan T, want T) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", want)
		}
	}
}

func startRunner(t *testing.T, cfg Config, opts ...RunnerOption) (*Runner, *fakeTransport, *recordingSink, chan error) {
	t.Helper()
	tr := newFakeTransport()
	sink := newRecordingSink()
	r, err := NewRunner(cfg, tr, sink, opts...)
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() { errc <- r.Run(t.Context()) }()
	return r, tr, sink, errc
}

func TestRunnerPlaysAGame(t *testing.T) {
	sched := clock.NewManualScheduler()
	cat, err := msgcat.New("")
	require.NoError(t, err)
	r, tr, sink, errc := startRunner(t,
		Config{Mode: ModePlay, Tournament: "spring", Player: "alice"},
		WithScheduler(sched), WithFormatter(NewCatalogFormatter(cat)),
	)
	ctx := t.Context()

	tr.events <- transport.Connected{}
	waitFor(t, tr.sentCh, "JOIN spring alice")

	tr.line("GAME_STARTED g1 alice bob 300.00 300.00 " + startFEN)
	waitFor(t, tr.sentCh, "ACK g1")
	waitFor(t, sink.status, "game g1 started")

	tr.line("GAME_ACKED g1")
	require.Eventually(t, func() bool {
		v, err := r.Snapshot(ctx)
		return err == nil && v.Clock.Ticking
	}, 2*time.Second, 10*time.Millisecond)

	for _, want := range []string{"299.00", "298.00", "297.00"} {
		sched.Advance(time.Second)
		waitFor(t, sink.clocks, ClockDisplay{White: want, Black: "300.00", WhiteToMove: true})
	}

	tr.line("YOUR_MOVE g1 alice bob 297.00 300.00 " + startFEN)
	waitFor(t, sink.turns, startFEN)

	v, err := r.TrySubmitMove(ctx, MoveIntent{From: "e2", To: "e4", Piece: "wP"})
	require.NoError(t, err)
	require.True(t, v.Accepted)
	waitFor(t, tr.sentCh, "MOVE g1 e2-e4")
	waitFor(t, sink.moves, "e2-e4")

	v, err = r.TrySubmitMove(ctx, MoveIntent{From: "d2", To: "d4", Piece: "wP"})
	require.NoError(t, err)
	require.Equal(t, RejectNotYourTurn, v.Reason)
	require.Equal(t, "it is not your turn", r.RejectText(v.Reason))

	tr.line("PLAYER_MOVED g1 alice e2e4 w 1 296.50 300.00 " + afterE4)
	waitFor(t, sink.clocks, ClockDisplay{White: "296.50", Black: "300.00"})

	tr.line("SAID bob nice")
	waitFor(t, sink.status, "bob: nice")

	close(tr.events)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop after close")
	}
	waitFor(t, sink.status, "disconnected")
	require.Equal(t, 0, sched.Outstanding())

	_, err = r.TrySubmitMove(ctx, MoveIntent{From: "e7", To: "e5"})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestRunnerExitOnGameOverLeavesWatch(t *testing.T) {
	_, tr, _, errc := startRunner(t, Config{Mode: ModeWatch, GameID: "g7"},
		WithScheduler(clock.NewManualScheduler()), ExitOnGameOver(true))

	tr.events <- transport.Connected{}
	waitFor(t, tr.sentCh, "WATCH g7")
	tr.line("GAME_STATE g7 alice bob 10 10 " + startFEN)
	tr.line("GAME_OVER g7 1-0 Time forfeit")

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not exit on game over")
	}
	waitFor(t, tr.sentCh, "UNWATCH g7")
}

func TestRunnerCountsParseErrors(t *testing.T) {
	r, tr, _, _ := startRunner(t, Config{Mode: ModeWatch, GameID: "g7"},
		WithScheduler(clock.NewManualScheduler()))
	tr.events <- transport.Connected{}
	tr.line("BOGUS 1 2 3")
	tr.line("GAME_STATE x y")
	tr.line("PLAYER_MOVED g7 a e2e4 w 1 1 1 " + afterE4)
	require.Eventually(t, func() bool {
		st := r.Stats()
		return st.Lines == 3 && st.ParseErrors == 2 && st.Anomalies == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	tr := newFakeTransport()
	r, err := NewRunner(Config{Mode: ModeWatch, GameID: "g7"}, tr, nil, WithScheduler(clock.NewManualScheduler()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	tr.events <- transport.Connected{}
	waitFor(t, tr.sentCh, "WATCH g7")
	cancel()
	require.True(t, errors.Is(<-errc, context.Canceled))
	waitFor(t, tr.sentCh, "UNWATCH g7")

	<-r.Done()
	require.ErrorIs(t, r.Resign(context.Background()), ErrSessionClosed)
}
