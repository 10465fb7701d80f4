package protocol

import (
	"strconv"
	"strings"
)

// Minimum token counts after the verb.
const (
	minFullState   = 7
	minPlayerMoved = 8
	minGameOver    = 1
	minGameAcked   = 1
	minGamePaired  = 5
	minSaid        = 1
)

// Parse decodes one inbound line. Interior runs of whitespace are tolerated and the
// verb is matched case-insensitively.
func Parse(line string) (Event, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return nil, &ParseError{Kind: KindTruncated, Line: line, Want: 1}
	}
	verb := Verb(strings.ToUpper(fields[0]))
	args := fields[1:]
	rest := strings.TrimSpace(trimmed[len(fields[0]):])

	switch verb {
	case VerbInfo:
		return Info{Text: rest}, nil
	case VerbGameState, VerbClockUpdate, VerbGameStarted, VerbYourMove:
		return parseFullState(verb, args, line)
	case VerbPlayerMoved:
		return parsePlayerMoved(args, line)
	case VerbGameOver:
		if len(args) < minGameOver {
			return nil, truncated(verb, line, minGameOver, len(args))
		}
		return GameOver{GameID: args[0], Reason: strings.Join(args[1:], " ")}, nil
	case VerbGameAcked:
		if len(args) < minGameAcked {
			return nil, truncated(verb, line, minGameAcked, len(args))
		}
		return GameAcked{GameID: args[0]}, nil
	case VerbGamePaired:
		return parseGamePaired(args, line)
	case VerbGameAborted:
		return GameAborted{Reason: strings.Join(args, " ")}, nil
	case VerbSaid:
		if len(args) < minSaid {
			return nil, truncated(verb, line, minSaid, len(args))
		}
		return Said{Speaker: args[0], Text: strings.Join(args[1:], " ")}, nil
	default:
		return nil, &ParseError{Kind: KindUnknownVerb, Verb: fields[0], Line: line}
	}
}

// parseFullState accepts two layouts: an explicit side flag at index 5 followed by the
// position, or the position starting at index 5 with the side read from its
// active-colour field.
func parseFullState(verb Verb, args []string, line string) (Event, error) {
	if len(args) < minFullState {
		return nil, truncated(verb, line, minFullState, len(args))
	}
	white, err := parseSeconds(verb, "white_seconds", args[3], line)
	if err != nil {
		return nil, err
	}
	black, err := parseSeconds(verb, "black_seconds", args[4], line)
	if err != nil {
		return nil, err
	}

	var (
		side     Side
		position []string
	)
	if s, ok := ParseSide(args[5]); ok {
		side, position = s, args[6:]
	} else if s, ok := ParseSide(args[6]); ok {
		side, position = s, args[5:]
	} else {
		return nil, &ParseError{Kind: KindBadField, Verb: string(verb), Line: line, Field: "side"}
	}

	return FullState{
		Kind:         verb,
		GameID:       args[0],
		White:        args[1],
		Black:        args[2],
		WhiteSeconds: white,
		BlackSeconds: black,
		Side:         side,
		Position:     strings.Join(position, " "),
	}, nil
}

func parsePlayerMoved(args []string, line string) (Event, error) {
	if len(args) < minPlayerMoved {
		return nil, truncated(VerbPlayerMoved, line, minPlayerMoved, len(args))
	}
	white, err := parseSeconds(VerbPlayerMoved, "white_seconds", args[5], line)
	if err != nil {
		return nil, err
	}
	black, err := parseSeconds(VerbPlayerMoved, "black_seconds", args[6], line)
	if err != nil {
		return nil, err
	}
	return PlayerMoved{
		GameID:       args[0],
		Mover:        args[1],
		Move:         args[2],
		ColorTag:     args[3],
		Ply:          args[4],
		WhiteSeconds: white,
		BlackSeconds: black,
		Position:     strings.Join(args[7:], " "),
	}, nil
}

func parseGamePaired(args []string, line string) (Event, error) {
	if len(args) < minGamePaired {
		return nil, truncated(VerbGamePaired, line, minGamePaired, len(args))
	}
	limit, err := parseSeconds(VerbGamePaired, "time_limit", args[3], line)
	if err != nil {
		return nil, err
	}
	inc, err := parseSeconds(VerbGamePaired, "increment", args[4], line)
	if err != nil {
		return nil, err
	}
	return GamePaired{GameID: args[0], White: args[1], Black: args[2], TimeLimit: limit, Increment: inc}, nil
}

func parseSeconds(verb Verb, field, tok, line string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &ParseError{Kind: KindBadField, Verb: string(verb), Line: line, Field: field, Err: err}
	}
	return v, nil
}

func truncated(verb Verb, line string, want, got int) *ParseError {
	return &ParseError{Kind: KindTruncated, Verb: string(verb), Line: line, Want: want, Got: got}
}
