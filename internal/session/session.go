package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-live-client/internal/clock"
	"github.com/park285/chess-live-client/internal/protocol"
)

// Session is the state of one live game as seen by this client. Every mutation goes
// through Apply or one of the command methods; none of them are safe for concurrent use.
type Session struct {
	cfg   Config
	clock *clock.Reconciler

	phase      Phase
	gameID     string
	white      string
	black      string
	position   string
	side       protocol.Side
	mayMove    bool
	localWhite bool
	acked      bool // ACK sent for the bound game
	pairedAck  bool // that ACK answered GAME_PAIRED, so no GAME_ACKED will follow
	closed     bool
}

// New builds a session in the CONNECTING phase. post is called from the scheduler when
// the local clock timer expires and must hand the generation back through Apply(Tick).
func New(cfg Config, sched clock.Scheduler, interval time.Duration, post func(gen uint64)) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg, clock: clock.NewReconciler(sched, interval, post)}
	if cfg.Mode == ModeWatch {
		s.gameID = cfg.GameID
	}
	return s, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeWatch:
		if strings.TrimSpace(c.GameID) == "" {
			return fmt.Errorf("%w: watch mode needs a game id", ErrInvalidConfig)
		}
	case ModePlay:
		if strings.TrimSpace(c.Tournament) == "" || strings.TrimSpace(c.Player) == "" {
			return fmt.Errorf("%w: play mode needs tournament and player", ErrInvalidConfig)
		}
		if strings.ContainsAny(c.Player, " \t") || strings.ContainsAny(c.Tournament, " \t") {
			return fmt.Errorf("%w: names must be single tokens", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	return nil
}

// Apply feeds one input into the state machine. The returned error never means the
// session is broken: parse errors leave state untouched, anomalies are reported next to
// whatever effects were still produced.
func (s *Session) Apply(in Input) ([]Effect, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	switch in := in.(type) {
	case Connected:
		return s.onConnected()
	case LineReceived:
		ev, err := protocol.Parse(in.Line)
		if err != nil {
			if s.cfg.SurfaceParseErrors {
				return []Effect{Status{Kind: StatusParseNote, Text: err.Error()}}, err
			}
			return nil, err
		}
		return s.onEvent(ev)
	case Inbound:
		return s.onEvent(in.Event)
	case Closed:
		return s.onClosed(in.Err), nil
	case Tick:
		d, ok := s.clock.Tick(in.Gen)
		if !ok {
			return nil, nil
		}
		return []Effect{clockEffect(d)}, nil
	default:
		return nil, fmt.Errorf("unsupported input %T", in)
	}
}

func (s *Session) onConnected() ([]Effect, error) {
	if s.phase != PhaseConnecting {
		return nil, anomaly(AnomalyReconnect, "phase %s", s.phase)
	}
	out := []Effect{Status{Kind: StatusConnected}}
	if s.cfg.Mode == ModeWatch {
		s.phase = PhaseAwaitingServer
		return append(out, Send{Command: protocol.Watch{GameID: s.cfg.GameID}}), nil
	}
	s.phase = PhaseAwaitingStart
	return append(out, Send{Command: protocol.Join{Tournament: s.cfg.Tournament, Player: s.cfg.Player}}), nil
}

func (s *Session) onEvent(ev protocol.Event) ([]Effect, error) {
	switch ev := ev.(type) {
	case protocol.Info:
		return []Effect{Status{Kind: StatusInfo, Text: ev.Text}}, nil
	case protocol.Said:
		return []Effect{Status{Kind: StatusChat, Speaker: ev.Speaker, Text: ev.Text}}, nil
	}

	if s.phase == PhaseConnecting {
		return nil, anomaly(AnomalyNotConnected, "%s", ev.Verb())
	}
	if p, ok := ev.(protocol.GamePaired); ok {
		return s.onPaired(p)
	}
	if s.phase.Terminal() {
		return nil, anomaly(AnomalyAfterEnd, "%s in %s", ev.Verb(), s.phase)
	}
	if id, ok := protocol.GameIDOf(ev); ok && s.gameID != "" && id != s.gameID {
		return nil, anomaly(AnomalyGameIDMismatch, "%s for %q, bound to %q", ev.Verb(), id, s.gameID)
	}

	switch ev := ev.(type) {
	case protocol.FullState:
		switch ev.Kind {
		case protocol.VerbGameStarted:
			return s.onStarted(ev), nil
		case protocol.VerbGameState:
			return s.onGameState(ev)
		case protocol.VerbClockUpdate:
			return s.onClockUpdate(ev)
		case protocol.VerbYourMove:
			return s.onYourMove(ev)
		}
	case protocol.PlayerMoved:
		return s.onPlayerMoved(ev)
	case protocol.GameAcked:
		return s.onAcked()
	case protocol.GameOver:
		return s.onGameOver(ev), nil
	case protocol.GameAborted:
		return s.onAborted(ev), nil
	}
	return nil, fmt.Errorf("unhandled event %s", ev.Verb())
}

// applyFull overwrites identity, board and clocks from a full-state message. Repeating
// the same message leaves the state as it was.
func (s *Session) applyFull(st protocol.FullState) []Effect {
	var out []Effect
	if s.gameID == "" {
		s.gameID = st.GameID
	}
	if st.White != s.white || st.Black != s.black {
		s.white, s.black = st.White, st.Black
		out = append(out, Players{White: s.white, Black: s.black})
	}
	if st.Position != s.position {
		s.position = st.Position
		out = append(out, Board{Position: s.position})
	}
	s.side = st.Side
	s.clock.OnAuthoritativeUpdate(st.WhiteSeconds, st.BlackSeconds, st.Side)
	return append(out, clockEffect(s.clock.Display()))
}

func (s *Session) onStarted(st protocol.FullState) []Effect {
	wasInGame := s.phase.InGame()
	out := s.applyFull(st)

	if s.cfg.Mode == ModeWatch {
		if !wasInGame {
			s.clock.Reset()
			s.phase = PhaseActive
			out = append(out, Status{Kind: StatusStarted, GameID: s.gameID})
		}
		return out
	}

	s.localWhite = st.White == s.cfg.Player
	out = append(out, Orientation{White: s.localWhite})
	if !s.acked {
		s.acked = true
		out = append(out, Send{Command: protocol.Ack{GameID: s.gameID}})
	}
	if !wasInGame {
		if s.pairedAck {
			s.clock.Reset()
		}
		if st.Side == s.localSide() {
			s.phase = PhaseActive
		} else {
			s.phase = PhaseOpponentToMove
		}
		out = append(out, Status{Kind: StatusStarted, GameID: s.gameID})
	}
	return out
}

func (s *Session) onGameState(st protocol.FullState) ([]Effect, error) {
	out := s.applyFull(st)
	if s.phase == PhaseAwaitingServer {
		s.phase = PhaseActive
	}
	return out, s.dropStaleTurn(st.Side)
}

// onClockUpdate also brings a watcher that joined mid-game into ACTIVE: the server only
// sends clock updates for games in progress.
func (s *Session) onClockUpdate(st protocol.FullState) ([]Effect, error) {
	out := s.applyFull(st)
	if s.phase == PhaseAwaitingServer {
		s.phase = PhaseActive
	}
	if s.phase.InGame() {
		s.clock.Reset()
	}
	return out, s.dropStaleTurn(st.Side)
}

// dropStaleTurn withdraws move permission when a full-state message says the other side
// is to move.
func (s *Session) dropStaleTurn(side protocol.Side) error {
	if s.phase != PhaseLocalToMove || side == s.localSide() {
		return nil
	}
	s.mayMove = false
	s.phase = PhaseOpponentToMove
	return anomaly(AnomalyWrongSide, "%s to move while %s held the turn", side, s.localSide())
}

func (s *Session) onYourMove(st protocol.FullState) ([]Effect, error) {
	if s.cfg.Mode == ModeWatch {
		return nil, anomaly(AnomalyWatchOnly, "YOUR_MOVE for %s", st.GameID)
	}
	out := s.applyFull(st)
	if !s.phase.InGame() {
		return out, anomaly(AnomalyUnexpectedPhase, "YOUR_MOVE in %s", s.phase)
	}
	if st.Side != s.localSide() {
		s.mayMove = false
		if s.phase == PhaseLocalToMove {
			s.phase = PhaseOpponentToMove
		}
		return out, anomaly(AnomalyWrongSide, "YOUR_MOVE with %s to move, playing %s", st.Side, s.localSide())
	}
	if s.phase == PhaseLocalToMove {
		return out, anomaly(AnomalyDuplicateYourMove, "game %s", s.gameID)
	}
	s.mayMove = true
	s.phase = PhaseLocalToMove
	return append(out, YourTurn{Position: s.position, White: s.localWhite}), nil
}

func (s *Session) onPlayerMoved(pm protocol.PlayerMoved) ([]Effect, error) {
	wasInGame := s.phase.InGame()

	var err error
	next := s.side.Opposite()
	if fromPos, ok := protocol.PositionSide(pm.Position); ok && fromPos != next {
		err = anomaly(AnomalySideMismatch, "flipped to %s, position has %s", next, fromPos)
		next = fromPos
	}
	s.side = next
	s.mayMove = false

	var out []Effect
	if pm.Position != s.position {
		s.position = pm.Position
		out = append(out, Board{Position: s.position})
	}
	s.clock.OnAuthoritativeUpdate(pm.WhiteSeconds, pm.BlackSeconds, next)
	out = append(out, clockEffect(s.clock.Display()))

	if !wasInGame {
		if err == nil {
			err = anomaly(AnomalyUnexpectedPhase, "PLAYER_MOVED in %s", s.phase)
		}
		return out, err
	}

	s.clock.Reset()
	if s.cfg.Mode == ModePlay {
		s.phase = PhaseOpponentToMove
	} else {
		s.phase = PhaseActive
	}
	return append(out, MoveSound{}), err
}

func (s *Session) onAcked() ([]Effect, error) {
	if !s.phase.InGame() {
		return nil, anomaly(AnomalyUnexpectedPhase, "GAME_ACKED in %s", s.phase)
	}
	s.clock.Start()
	return nil, nil
}

func (s *Session) onGameOver(ev protocol.GameOver) []Effect {
	s.clock.Stop()
	s.mayMove = false
	s.phase = PhaseGameOver
	return []Effect{
		Status{Kind: StatusGameOver, GameID: ev.GameID, Text: ev.Reason},
		GameOverSound{Reason: ev.Reason},
	}
}

func (s *Session) onAborted(ev protocol.GameAborted) []Effect {
	out := []Effect{Status{Kind: StatusAborted, GameID: s.gameID, Text: ev.Reason}}
	s.clock.Stop()
	s.mayMove = false
	if s.cfg.Mode == ModeWatch {
		s.phase = PhaseGameOver
		return out
	}
	s.resetGame()
	s.phase = PhaseAwaitingStart
	return out
}

// onPaired handles a pairing announcement. In play mode the server keeps pairing a
// player after each finished game, so GAME_PAIRED after GAME_OVER begins a new game.
func (s *Session) onPaired(p protocol.GamePaired) ([]Effect, error) {
	if s.cfg.Mode == ModeWatch {
		return nil, anomaly(AnomalyWatchOnly, "GAME_PAIRED for %s", p.GameID)
	}
	switch s.phase {
	case PhaseAwaitingStart:
	case PhaseGameOver:
		s.resetGame()
		s.phase = PhaseAwaitingStart
	case PhaseDisconnected:
		return nil, anomaly(AnomalyAfterEnd, "GAME_PAIRED in %s", s.phase)
	default:
		return nil, anomaly(AnomalyUnexpectedPhase, "GAME_PAIRED in %s", s.phase)
	}
	if s.gameID != "" && s.gameID != p.GameID {
		return nil, anomaly(AnomalyGameIDMismatch, "GAME_PAIRED for %q, bound to %q", p.GameID, s.gameID)
	}

	s.gameID = p.GameID
	var out []Effect
	if p.White != s.white || p.Black != s.black {
		s.white, s.black = p.White, p.Black
		out = append(out, Players{White: s.white, Black: s.black})
	}
	s.localWhite = p.White == s.cfg.Player
	out = append(out,
		Orientation{White: s.localWhite},
		Status{Kind: StatusPaired, GameID: p.GameID, Text: p.White + " vs " + p.Black},
	)
	if !s.acked {
		s.acked = true
		s.pairedAck = true
		out = append(out, Send{Command: protocol.Ack{GameID: p.GameID}})
	}
	return out, nil
}

func (s *Session) onClosed(err error) []Effect {
	if s.phase == PhaseDisconnected {
		return nil
	}
	s.clock.Stop()
	s.mayMove = false
	s.phase = PhaseDisconnected
	text := ""
	if err != nil {
		text = err.Error()
	}
	return []Effect{Status{Kind: StatusDisconnected, Text: text}}
}

func (s *Session) resetGame() {
	s.clock.Stop()
	s.clock.OnAuthoritativeUpdate(0, 0, protocol.White)
	s.gameID = ""
	s.white, s.black, s.position = "", "", ""
	s.side = protocol.White
	s.mayMove = false
	s.localWhite = false
	s.acked = false
	s.pairedAck = false
}

func (s *Session) localSide() protocol.Side {
	if s.localWhite {
		return protocol.White
	}
	return protocol.Black
}

func clockEffect(d clock.Display) ClockDisplay {
	return ClockDisplay{White: d.White, Black: d.Black, WhiteToMove: d.WhiteToMove}
}
