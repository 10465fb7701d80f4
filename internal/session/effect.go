package session

import "github.com/park285/chess-live-client/internal/protocol"

// Effect is an instruction produced by Apply for the runner to carry out, in order.
type Effect interface{ effect() }

// Send writes a command to the transport.
type Send struct{ Command protocol.Command }

type StatusKind string

const (
	StatusConnected    StatusKind = "connected"
	StatusInfo         StatusKind = "info"
	StatusChat         StatusKind = "chat"
	StatusPaired       StatusKind = "paired"
	StatusStarted      StatusKind = "started"
	StatusGameOver     StatusKind = "game_over"
	StatusAborted      StatusKind = "aborted"
	StatusDisconnected StatusKind = "disconnected"
	StatusParseNote    StatusKind = "parse_note"
)

// Status is a line of human-readable status. Text is the raw server text or reason; the
// runner renders it through the message catalog.
type Status struct {
	Kind    StatusKind
	Text    string
	Speaker string
	GameID  string
}

type Board struct{ Position string }

type ClockDisplay struct {
	White       string
	Black       string
	WhiteToMove bool
}

type Players struct {
	White string
	Black string
}

type MoveSound struct{}

type GameOverSound struct{ Reason string }

// Orientation tells presentation which side to draw at the bottom.
type Orientation struct{ White bool }

// YourTurn is emitted when the local player gains permission to move.
type YourTurn struct {
	Position string
	White    bool
}

// MoveSent follows the Send of an accepted local move.
type MoveSent struct {
	From string
	To   string
}

func (Send) effect()          {}
func (Status) effect()        {}
func (Board) effect()         {}
func (ClockDisplay) effect()  {}
func (Players) effect()       {}
func (MoveSound) effect()     {}
func (GameOverSound) effect() {}
func (Orientation) effect()   {}
func (YourTurn) effect()      {}
func (MoveSent) effect()      {}
