package protocol

import "strings"

// Verb is the first token of every protocol line.
type Verb string

// Inbound verbs.
const (
	VerbInfo        Verb = "INFO"
	VerbGameState   Verb = "GAME_STATE"
	VerbClockUpdate Verb = "CLOCK_UPDATE"
	VerbGameStarted Verb = "GAME_STARTED"
	VerbYourMove    Verb = "YOUR_MOVE"
	VerbPlayerMoved Verb = "PLAYER_MOVED"
	VerbGameOver    Verb = "GAME_OVER"
	VerbGameAcked   Verb = "GAME_ACKED"
	VerbGamePaired  Verb = "GAME_PAIRED"
	VerbGameAborted Verb = "GAME_ABORTED"
	VerbSaid        Verb = "SAID"
)

// Outbound verbs.
const (
	VerbWatch   Verb = "WATCH"
	VerbUnwatch Verb = "UNWATCH"
	VerbJoin    Verb = "JOIN"
	VerbAck     Verb = "ACK"
	VerbMove    Verb = "MOVE"
	VerbResign  Verb = "RESIGN"
	VerbSay     Verb = "SAY"
)

// Side identifies a chess color.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) Opposite() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// ParseSide accepts the side flags seen on the wire: w, b, white, black (any case).
func ParseSide(tok string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "w", "white":
		return White, true
	case "b", "black":
		return Black, true
	default:
		return White, false
	}
}

// PositionSide reads the active-colour field of a FEN-like position.
func PositionSide(position string) (Side, bool) {
	fields := strings.Fields(position)
	if len(fields) < 2 {
		return White, false
	}
	return ParseSide(fields[1])
}

// Event is a decoded inbound message.
type Event interface {
	Verb() Verb
}

// Info carries free-form server text.
type Info struct {
	Text string
}

// FullState is the shared shape of GAME_STATE, CLOCK_UPDATE, GAME_STARTED and YOUR_MOVE.
type FullState struct {
	Kind         Verb
	GameID       string
	White        string
	Black        string
	WhiteSeconds float64
	BlackSeconds float64
	Side         Side
	Position     string
}

// PlayerMoved reports a move accepted by the server, with the clocks after it.
type PlayerMoved struct {
	GameID       string
	Mover        string
	Move         string
	ColorTag     string
	Ply          string // raw token; older servers put the black player's name here
	WhiteSeconds float64
	BlackSeconds float64
	Position     string
}

type GameOver struct {
	GameID string
	Reason string
}

type GameAcked struct {
	GameID string
}

// GamePaired announces a pairing that must be acknowledged before the game starts.
type GamePaired struct {
	GameID    string
	White     string
	Black     string
	TimeLimit float64
	Increment float64
}

type GameAborted struct {
	Reason string
}

type Said struct {
	Speaker string
	Text    string
}

func (Info) Verb() Verb        { return VerbInfo }
func (e FullState) Verb() Verb { return e.Kind }
func (PlayerMoved) Verb() Verb { return VerbPlayerMoved }
func (GameOver) Verb() Verb    { return VerbGameOver }
func (GameAcked) Verb() Verb   { return VerbGameAcked }
func (GamePaired) Verb() Verb  { return VerbGamePaired }
func (GameAborted) Verb() Verb { return VerbGameAborted }
func (Said) Verb() Verb        { return VerbSaid }

// GameIDOf returns the game identifier carried by ev, if any.
func GameIDOf(ev Event) (string, bool) {
	switch v := ev.(type) {
	case FullState:
		return v.GameID, true
	case PlayerMoved:
		return v.GameID, true
	case GameOver:
		return v.GameID, true
	case GameAcked:
		return v.GameID, true
	case GamePaired:
		return v.GameID, true
	default:
		return "", false
	}
}
