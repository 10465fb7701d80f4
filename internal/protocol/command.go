package protocol

import "strings"

// Command is an outbound message.
type Command interface {
	Verb() Verb
	args() []string
}

type Watch struct{ GameID string }

type Unwatch struct{ GameID string }

type Join struct {
	Tournament string
	Player     string
}

type Ack struct{ GameID string }

// Move is a move intent. Piece uses the two-letter board notation (wP, bN, ...); it
// only matters for deciding the promotion suffix.
type Move struct {
	GameID string
	From   string
	To     string
	Piece  string
}

type Resign struct{ GameID string }

type Say struct {
	GameID string
	Text   string
}

func (Watch) Verb() Verb   { return VerbWatch }
func (Unwatch) Verb() Verb { return VerbUnwatch }
func (Join) Verb() Verb    { return VerbJoin }
func (Ack) Verb() Verb     { return VerbAck }
func (Move) Verb() Verb    { return VerbMove }
func (Resign) Verb() Verb  { return VerbResign }
func (Say) Verb() Verb     { return VerbSay }

func (c Watch) args() []string   { return []string{c.GameID} }
func (c Unwatch) args() []string { return []string{c.GameID} }
func (c Join) args() []string    { return []string{c.Tournament, c.Player} }
func (c Ack) args() []string     { return []string{c.GameID} }
func (c Resign) args() []string  { return []string{c.GameID} }
func (c Say) args() []string     { return []string{c.GameID, c.Text} }

func (c Move) args() []string {
	text := strings.ToLower(c.From) + "-" + strings.ToLower(c.To)
	if PromotesToQueen(c.Piece, c.To) {
		text += "=Q"
	}
	return []string{c.GameID, text}
}

// Encode renders c as a wire line without the trailing newline.
func Encode(c Command) string {
	parts := []string{string(c.Verb())}
	for _, a := range c.args() {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}

// PromotesToQueen reports whether a pawn landing on to reaches the back rank. There is
// no underpromotion: the client always asks for a queen.
func PromotesToQueen(piece, to string) bool {
	if !isPawn(piece) || len(to) != 2 {
		return false
	}
	return to[1] == '1' || to[1] == '8'
}

func isPawn(piece string) bool {
	p := strings.TrimSpace(piece)
	if p == "" {
		return false
	}
	last := p[len(p)-1]
	return last == 'P' || last == 'p'
}

// ValidSquare reports whether sq names a board square (a1..h8).
func ValidSquare(sq string) bool {
	if len(sq) != 2 {
		return false
	}
	f := sq[0] | 0x20
	return f >= 'a' && f <= 'h' && sq[1] >= '1' && sq[1] <= '8'
}
