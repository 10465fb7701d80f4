package present

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestConsoleClockLabels(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.OnPlayers("alice", "bob")
	buf.Reset()

	c.OnClockDisplay("297.00", "300.00", true)
	if got := buf.String(); got != "[alice: 297.00]  bob: 300.00\n" {
		t.Fatalf("clock line: %q", got)
	}
	buf.Reset()
	c.OnClockDisplay("297.00", "299.00", false)
	if got := buf.String(); got != "alice: 297.00  [bob: 299.00]\n" {
		t.Fatalf("clock line: %q", got)
	}
}

func TestConsoleBoardAndBell(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithBell(true))
	c.OnOrientation(false)
	c.OnBoard(startFEN)
	if !strings.Contains(buf.String(), "1  R N B K Q B N R") {
		t.Fatalf("expected black-side board, got:\n%s", buf.String())
	}
	buf.Reset()
	c.OnMoveSound()
	if buf.String() != "\a" {
		t.Fatalf("expected bell, got %q", buf.String())
	}
	buf.Reset()
	c.OnBoard("not a fen")
	if !strings.HasPrefix(buf.String(), "position: ") {
		t.Fatalf("expected raw fallback, got %q", buf.String())
	}
}

type recordingSink struct {
	Nop
	calls []string
}

func (r *recordingSink) OnStatus(text string)          { r.calls = append(r.calls, "status:"+text) }
func (r *recordingSink) OnYourTurn(string, bool)       { r.calls = append(r.calls, "turn") }
func (r *recordingSink) OnGameOverSound(reason string) { r.calls = append(r.calls, "over:"+reason) }
func (r *recordingSink) OnMoveSent(from, to string)    { r.calls = append(r.calls, "sent:"+from+to) }

func TestMultiForwardsOptionalObservers(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := Multi{a, Nop{}, b}
	m.OnStatus("hi")
	m.OnYourTurn(startFEN, true)
	m.OnMoveSent("e2", "e4")
	m.OnPlayers("alice", "bob")
	m.OnGameOverSound("1-0")
	for _, r := range []*recordingSink{a, b} {
		if strings.Join(r.calls, ",") != "status:hi,turn,sent:e2e4,over:1-0" {
			t.Fatalf("calls: %v", r.calls)
		}
	}
}

func TestSnapshotTracksGame(t *testing.T) {
	s := NewSnapshot()
	s.OnPlayers("alice", "bob")
	s.OnOrientation(true)
	s.OnBoard(startFEN)
	s.OnClockDisplay("300.00", "300.00", true)
	s.OnYourTurn(startFEN, true)
	s.OnMoveSound()
	s.OnGameOverSound("1-0 Resignation")

	v := s.View()
	if v.White != "alice" || v.Black != "bob" || v.Position != startFEN {
		t.Fatalf("identity: %+v", v)
	}
	if v.Moves != 1 || v.YourTurn || !v.GameOver || v.Reason != "1-0 Resignation" {
		t.Fatalf("progress: %+v", v)
	}

	for i := 0; i < defaultStatusHistory+5; i++ {
		s.OnStatus("line")
	}
	if n := len(s.View().Status); n != defaultStatusHistory {
		t.Fatalf("status history not capped: %d", n)
	}

	s.OnOrientation(false)
	s.OnYourTurn(startFEN, false)
	if !s.View().YourTurn {
		t.Fatalf("expected your_turn after OnYourTurn")
	}
	s.OnMoveSent("e7", "e5")
	if s.View().YourTurn {
		t.Fatalf("your_turn should clear once the move is sent")
	}
	if v := s.View(); v.GameOver || v.Moves != 0 || v.WhiteBottom {
		t.Fatalf("orientation should start a fresh game view: %+v", v)
	}
}

func TestRedisSinkPublishesAndStores(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	sink := NewRedisSink(rdb, "test:g1")
	sub := rdb.Subscribe(ctx, sink.ChannelEvents())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sink.OnPlayers("alice", "bob")
	sink.OnBoard(startFEN)
	sink.OnClockDisplay("299.00", "300.00", true)
	sink.OnGameOverSound("0-1 Time forfeit")
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	v, err := LoadView(ctx, rdb, "test:g1")
	if err != nil || v == nil {
		t.Fatalf("LoadView: %v %v", v, err)
	}
	if v.White != "alice" || v.WhiteClock != "299.00" || !v.GameOver || v.Reason != "0-1 Time forfeit" {
		t.Fatalf("stored view: %+v", v)
	}
	if ttl := mr.TTL("test:g1:view"); ttl <= 0 {
		t.Fatalf("expected ttl on view key, got %v", ttl)
	}

	ch := sub.Channel()
	var types []string
	timeout := time.After(2 * time.Second)
	for len(types) < 4 {
		select {
		case msg := <-ch:
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				t.Fatalf("payload: %v", err)
			}
			types = append(types, ev.Type)
		case <-timeout:
			t.Fatalf("only received %v", types)
		}
	}
	if strings.Join(types, ",") != "players,board,clock,game_over" {
		t.Fatalf("event order: %v", types)
	}
}

func TestLoadViewMissing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	v, err := LoadView(context.Background(), rdb, "none")
	if err != nil || v != nil {
		t.Fatalf("expected nil view, got %v %v", v, err)
	}
}

func TestWebhookSinkPostsGameOver(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	got := make(chan Event, 4)
	calls := 0
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		calls++
		if calls == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		var ev Event
		if err := json.Unmarshal(ctx.PostBody(), &ev); err == nil {
			got <- ev
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}}
	go srv.Serve(ln)
	defer srv.Shutdown()

	w := NewWebhookSink("http://"+ln.Addr().String()+"/hook", WithWebhookRetry(3))
	w.OnPlayers("alice", "bob")
	w.OnClockDisplay("1.00", "2.00", true)
	w.OnGameOverSound("1-0 Checkmate")

	select {
	case ev := <-got:
		if ev.Type != EventGameOver || ev.Text != "1-0 Checkmate" || ev.View.White != "alice" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("webhook not delivered")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
