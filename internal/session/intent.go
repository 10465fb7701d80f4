package session

import (
	"strings"

	"github.com/park285/chess-live-client/internal/protocol"
)

// TrySubmitMove checks a local move intent against the current permission. Legality is
// left to the server; only the phase, the squares and MayMove are checked here.
func (s *Session) TrySubmitMove(m MoveIntent) (Verdict, []Effect) {
	switch {
	case s.closed || s.phase == PhaseDisconnected:
		return Verdict{Reason: RejectClosed}, nil
	case s.cfg.Mode == ModeWatch:
		return Verdict{Reason: RejectWatchMode}, nil
	case !s.phase.InGame():
		return Verdict{Reason: RejectNotInGame}, nil
	}
	from := strings.ToLower(strings.TrimSpace(m.From))
	to := strings.ToLower(strings.TrimSpace(m.To))
	if !protocol.ValidSquare(from) || !protocol.ValidSquare(to) || from == to {
		return Verdict{Reason: RejectInvalidSquare}, nil
	}
	if !s.mayMove || s.phase != PhaseLocalToMove {
		return Verdict{Reason: RejectNotYourTurn}, nil
	}

	s.mayMove = false
	s.phase = PhaseOpponentToMove
	cmd := protocol.Move{GameID: s.gameID, From: from, To: to, Piece: m.Piece}
	return Verdict{Accepted: true}, []Effect{Send{Command: cmd}, MoveSent{From: from, To: to}}
}

// Resign gives up the current game.
func (s *Session) Resign() ([]Effect, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.cfg.Mode != ModePlay || !s.phase.InGame() {
		return nil, ErrNotInGame
	}
	return []Effect{Send{Command: protocol.Resign{GameID: s.gameID}}}, nil
}

// Say sends a chat line to the opponent.
func (s *Session) Say(text string) ([]Effect, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if s.cfg.Mode != ModePlay || s.gameID == "" || s.phase == PhaseDisconnected {
		return nil, ErrNotInGame
	}
	return []Effect{Send{Command: protocol.Say{GameID: s.gameID, Text: text}}}, nil
}

// Leave stops watching. It is a no-op in play mode, where leaving means disconnecting.
func (s *Session) Leave() ([]Effect, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.cfg.Mode != ModeWatch || s.phase == PhaseConnecting || s.phase == PhaseDisconnected {
		return nil, nil
	}
	return []Effect{Send{Command: protocol.Unwatch{GameID: s.cfg.GameID}}}, nil
}

// Teardown stops the clock and closes the session for good.
func (s *Session) Teardown() {
	s.clock.Stop()
	s.mayMove = false
	s.closed = true
}

func (s *Session) MayMove() bool { return s.mayMove && !s.closed }

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Snapshot() View {
	return View{
		Mode:       s.cfg.Mode,
		Phase:      s.phase,
		GameID:     s.gameID,
		White:      s.white,
		Black:      s.black,
		Position:   s.position,
		Side:       s.side,
		MayMove:    s.mayMove,
		LocalWhite: s.localWhite,
		Clock:      s.clock.State(),
		Closed:     s.closed,
	}
}
