package moveinput

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/chess-live-client/internal/render"
	"github.com/park285/chess-live-client/internal/session"
)

var ErrNoLegalMove = errors.New("no legal move")

// AutoPlayer answers every turn with a uniformly random legal move. It implements
// present.TurnObserver; moves are submitted from a separate goroutine.
type AutoPlayer struct {
	ctx   context.Context
	sub   Submitter
	log   *zap.Logger
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
	wg  sync.WaitGroup
}

type AutoOption func(*AutoPlayer)

// WithThinkTime waits d before each move.
func WithThinkTime(d time.Duration) AutoOption { return func(a *AutoPlayer) { a.delay = d } }

func WithSeed(seed uint64) AutoOption {
	return func(a *AutoPlayer) { a.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithAutoLogger(l *zap.Logger) AutoOption {
	return func(a *AutoPlayer) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAutoPlayer stops submitting once ctx is done.
func NewAutoPlayer(ctx context.Context, sub Submitter, opts ...AutoOption) *AutoPlayer {
	a := &AutoPlayer{
		ctx: ctx,
		sub: sub,
		log: zap.NewNop(),
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AutoPlayer) OnYourTurn(position string, _ bool) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.play(position)
	}()
}

// Wait blocks until every started move submission has finished.
func (a *AutoPlayer) Wait() { a.wg.Wait() }

func (a *AutoPlayer) play(position string) {
	if a.delay > 0 {
		t := time.NewTimer(a.delay)
		select {
		case <-a.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	a.mu.Lock()
	from, to, err := PickRandomMove(position, a.rng)
	a.mu.Unlock()
	if err != nil {
		a.log.Warn("auto_move_pick_failed", zap.String("position", position), zap.Error(err))
		return
	}

	v, err := a.sub.TrySubmitMove(a.ctx, session.MoveIntent{
		From:  from,
		To:    to,
		Piece: render.PieceCode(position, from),
	})
	switch {
	case err != nil:
		a.log.Debug("auto_move_submit_failed", zap.Error(err))
	case !v.Accepted:
		a.log.Info("auto_move_rejected", zap.String("reason", v.Reason))
	default:
		a.log.Debug("auto_move", zap.String("from", from), zap.String("to", to))
	}
}

// PickRandomMove chooses one legal move for the side to move in position.
func PickRandomMove(position string, rng *rand.Rand) (from, to string, err error) {
	option, err := nchess.FEN(position)
	if err != nil {
		return "", "", err
	}
	game := nchess.NewGame(option)
	moves := game.ValidMoves()
	if len(moves) == 0 {
		return "", "", ErrNoLegalMove
	}
	mv := moves[rng.IntN(len(moves))]
	return mv.S1().String(), mv.S2().String(), nil
}
