package session

import (
	"strings"

	"github.com/park285/chess-live-client/internal/clock"
	"github.com/park285/chess-live-client/internal/protocol"
)

type Mode string

const (
	ModeWatch Mode = "watch"
	ModePlay  Mode = "play"
)

// ParseMode accepts "watch" or "play" in any case.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWatch:
		return ModeWatch, true
	case ModePlay:
		return ModePlay, true
	default:
		return "", false
	}
}

type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseAwaitingServer
	PhaseAwaitingStart
	PhaseActive
	PhaseOpponentToMove
	PhaseLocalToMove
	PhaseGameOver
	PhaseDisconnected
)

var phaseNames = [...]string{
	PhaseConnecting:     "connecting",
	PhaseAwaitingServer: "awaiting_server",
	PhaseAwaitingStart:  "awaiting_start",
	PhaseActive:         "active",
	PhaseOpponentToMove: "opponent_to_move",
	PhaseLocalToMove:    "local_to_move",
	PhaseGameOver:       "game_over",
	PhaseDisconnected:   "disconnected",
}

func (p Phase) String() string {
	if int(p) >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// InGame reports whether p is one of the in-game phases (ACTIVE and its two turn
// sub-phases).
func (p Phase) InGame() bool {
	return p == PhaseActive || p == PhaseOpponentToMove || p == PhaseLocalToMove
}

// Terminal reports whether no further game state changes are accepted in p.
func (p Phase) Terminal() bool {
	return p == PhaseGameOver || p == PhaseDisconnected
}

// Config is the session identity fixed before connecting.
type Config struct {
	Mode       Mode
	GameID     string // watch mode only
	Tournament string // play mode only
	Player     string // play mode only

	// SurfaceParseErrors turns undecodable lines into parse_note status effects.
	SurfaceParseErrors bool
}

// Input is anything the runner feeds into Session.Apply.
type Input interface{ input() }

type Connected struct{}

type LineReceived struct{ Line string }

// Inbound carries an already decoded event.
type Inbound struct{ Event protocol.Event }

type Closed struct{ Err error }

// Tick is a timer expiry reported by the clock scheduler.
type Tick struct{ Gen uint64 }

func (Connected) input()    {}
func (LineReceived) input() {}
func (Inbound) input()      {}
func (Closed) input()       {}
func (Tick) input()         {}

// MoveIntent is a move the local player wants to send. Piece is the two-letter code of
// the moving piece (wP, bQ, ...).
type MoveIntent struct {
	From  string
	To    string
	Piece string
}

// Verdict is the answer to a move intent.
type Verdict struct {
	Accepted bool
	Reason   string
}

// Rejection reasons.
const (
	RejectWatchMode     = "watch_mode"
	RejectClosed        = "session_closed"
	RejectNotInGame     = "not_in_game"
	RejectInvalidSquare = "invalid_square"
	RejectNotYourTurn   = "not_your_turn"
)

// View is a copy of the session state.
type View struct {
	Mode       Mode
	Phase      Phase
	GameID     string
	White      string
	Black      string
	Position   string
	Side       protocol.Side
	MayMove    bool
	LocalWhite bool
	Clock      clock.State
	Closed     bool
}
