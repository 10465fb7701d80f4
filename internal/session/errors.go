package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNotInGame     = errors.New("not in a game")
	ErrInvalidConfig = errors.New("invalid session config")
)

// Anomaly kinds. An anomaly is logged and the session carries on.
const (
	AnomalyGameIDMismatch    = "game_id_mismatch"
	AnomalyAfterEnd          = "event_after_end"
	AnomalyNotConnected      = "event_before_connect"
	AnomalyUnexpectedPhase   = "unexpected_phase"
	AnomalyDuplicateYourMove = "duplicate_your_move"
	AnomalyWrongSide         = "wrong_side"
	AnomalyWatchOnly         = "play_event_in_watch_mode"
	AnomalySideMismatch      = "side_mismatch"
	AnomalyReconnect         = "already_connected"
)

// AnomalyError reports an out-of-sequence or inconsistent message.
type AnomalyError struct {
	Kind   string
	Detail string
}

func (e *AnomalyError) Error() string {
	if e.Detail == "" {
		return "session anomaly: " + e.Kind
	}
	return fmt.Sprintf("session anomaly: %s: %s", e.Kind, e.Detail)
}

func anomaly(kind, format string, args ...any) *AnomalyError {
	return &AnomalyError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsAnomaly reports whether err is an *AnomalyError of the given kind. An empty kind
// matches any anomaly.
func IsAnomaly(err error, kind string) bool {
	var a *AnomalyError
	if !errors.As(err, &a) {
		return false
	}
	return kind == "" || a.Kind == kind
}
