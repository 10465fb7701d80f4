package moveinput

import (
	"bytes"
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/park285/chess-live-client/internal/session"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type fakeSubmitter struct {
	mu      sync.Mutex
	moves   []session.MoveIntent
	said    []string
	resigns int
	verdict session.Verdict
}

func (f *fakeSubmitter) TrySubmitMove(_ context.Context, m session.MoveIntent) (session.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, m)
	return f.verdict, nil
}

func (f *fakeSubmitter) Resign(context.Context) error {
	f.mu.Lock()
	f.resigns++
	f.mu.Unlock()
	return nil
}

func (f *fakeSubmitter) Say(_ context.Context, text string) error {
	f.mu.Lock()
	f.said = append(f.said, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeSubmitter) RejectText(reason string) string { return "no: " + reason }

func TestParseMove(t *testing.T) {
	cases := map[string][2]string{
		"e2 e4":   {"e2", "e4"},
		"E2E4":    {"e2", "e4"},
		"d7-d8":   {"d7", "d8"},
		" g1 ,f3": {"g1", "f3"},
	}
	for in, want := range cases {
		from, to, ok := ParseMove(in)
		if !ok || from != want[0] || to != want[1] {
			t.Fatalf("ParseMove(%q) = %s %s %v", in, from, to, ok)
		}
	}
	for _, bad := range []string{"", "e2", "e2 e2", "i2 i4", "e2 e4 e5", "hello"} {
		if _, _, ok := ParseMove(bad); ok {
			t.Fatalf("ParseMove(%q) should fail", bad)
		}
	}
}

func TestReaderDispatchesLines(t *testing.T) {
	sub := &fakeSubmitter{verdict: session.Verdict{Reason: session.RejectNotYourTurn}}
	var out bytes.Buffer
	in := strings.NewReader("e2 e4\nsay good luck\n\nnonsense\nresign\n")
	r := NewReader(in, &out, sub, func() string { return startFEN }, nil)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sub.moves) != 1 || sub.moves[0] != (session.MoveIntent{From: "e2", To: "e4", Piece: "wP"}) {
		t.Fatalf("moves: %+v", sub.moves)
	}
	if len(sub.said) != 1 || sub.said[0] != "good luck" || sub.resigns != 1 {
		t.Fatalf("commands: said=%v resigns=%d", sub.said, sub.resigns)
	}
	text := out.String()
	if !strings.Contains(text, "! no: not_your_turn") || !strings.Contains(text, `? "nonsense"`) {
		t.Fatalf("output: %q", text)
	}
}

func TestReaderQuit(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewReader(strings.NewReader("quit\ne2 e4\n"), nil, sub, nil, nil)
	if err := r.Run(context.Background()); err != ErrQuit {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if len(sub.moves) != 0 {
		t.Fatalf("no move expected after quit")
	}
}

func TestPickRandomMoveIsLegal(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	legal := map[string]bool{}
	for _, f := range "abcdefgh" {
		legal[string(f)+"2"] = true
	}
	legal["b1"], legal["g1"] = true, true
	for i := 0; i < 50; i++ {
		from, to, err := PickRandomMove(startFEN, rng)
		if err != nil {
			t.Fatalf("PickRandomMove: %v", err)
		}
		if !legal[from] || from == to {
			t.Fatalf("unexpected move %s-%s", from, to)
		}
	}
}

func TestPickRandomMoveCheckmated(t *testing.T) {
	// fool's mate, white to move and mated
	mated := "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	if _, _, err := PickRandomMove(mated, rand.New(rand.NewPCG(1, 1))); err != ErrNoLegalMove {
		t.Fatalf("expected ErrNoLegalMove, got %v", err)
	}
	if _, _, err := PickRandomMove("garbage", rand.New(rand.NewPCG(1, 1))); err == nil {
		t.Fatalf("expected FEN error")
	}
}

func TestAutoPlayerSubmitsOnTurn(t *testing.T) {
	sub := &fakeSubmitter{verdict: session.Verdict{Accepted: true}}
	a := NewAutoPlayer(context.Background(), sub, WithSeed(7))
	a.OnYourTurn(startFEN, true)
	a.Wait()
	if len(sub.moves) != 1 {
		t.Fatalf("expected one move, got %d", len(sub.moves))
	}
	m := sub.moves[0]
	if m.Piece != "wP" && m.Piece != "wN" {
		t.Fatalf("unexpected piece %q for %s", m.Piece, m.From)
	}
}
