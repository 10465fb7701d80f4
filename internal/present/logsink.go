package present

import "go.uber.org/zap"

// LogSink records presentation updates as structured log events.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSink{log: l}
}

func (s *LogSink) OnStatus(text string) {
	s.log.Info("status", zap.String("text", text))
}

func (s *LogSink) OnBoard(position string) {
	s.log.Debug("board", zap.String("position", position))
}

func (s *LogSink) OnClockDisplay(white, black string, whiteToMove bool) {
	s.log.Debug("clock", zap.String("white", white), zap.String("black", black), zap.Bool("white_to_move", whiteToMove))
}

func (s *LogSink) OnMoveSound() {
	s.log.Debug("move_cue")
}

func (s *LogSink) OnGameOverSound(reason string) {
	s.log.Info("game_over_cue", zap.String("reason", reason))
}

func (s *LogSink) OnOrientation(white bool) {
	s.log.Debug("orientation", zap.Bool("white_bottom", white))
}

func (s *LogSink) OnPlayers(white, black string) {
	s.log.Info("players", zap.String("white", white), zap.String("black", black))
}

func (s *LogSink) OnMoveSent(from, to string) {
	s.log.Info("move_sent", zap.String("from", from), zap.String("to", to))
}

func (s *LogSink) OnYourTurn(position string, white bool) {
	s.log.Info("your_turn", zap.String("position", position), zap.Bool("white", white))
}
