package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownVerb = errors.New("unknown verb")
	ErrTruncated   = errors.New("truncated message")
	ErrBadField    = errors.New("malformed field")
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	KindUnknownVerb ErrorKind = iota + 1
	KindTruncated
	KindBadField
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownVerb:
		return "unknown_verb"
	case KindTruncated:
		return "truncated"
	case KindBadField:
		return "bad_field"
	default:
		return "unknown"
	}
}

// ParseError describes an inbound line that could not be decoded. It is never fatal
// to a session: the line is discarded and processing continues.
type ParseError struct {
	Kind  ErrorKind
	Verb  string
	Line  string
	Want  int    // minimum token count, for KindTruncated
	Got   int    // token count seen, for KindTruncated
	Field string // offending field name, for KindBadField
	Err   error  // underlying conversion error, for KindBadField
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindUnknownVerb:
		return fmt.Sprintf("unknown verb %q", e.Verb)
	case KindTruncated:
		return fmt.Sprintf("%s: truncated, want %d fields got %d", e.Verb, e.Want, e.Got)
	case KindBadField:
		if e.Err != nil {
			return fmt.Sprintf("%s: bad %s: %v", e.Verb, e.Field, e.Err)
		}
		return fmt.Sprintf("%s: bad %s", e.Verb, e.Field)
	default:
		return "parse error"
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets callers match on the kind sentinels with errors.Is.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrUnknownVerb:
		return e.Kind == KindUnknownVerb
	case ErrTruncated:
		return e.Kind == KindTruncated
	case ErrBadField:
		return e.Kind == KindBadField
	}
	return false
}
