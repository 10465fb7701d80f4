package present

// Sink receives presentation updates from the session runner. Calls arrive on the runner
// goroutine in effect order and must not block for long.
type Sink interface {
	OnStatus(text string)
	OnBoard(position string)
	OnClockDisplay(white, black string, whiteToMove bool)
	OnMoveSound()
	OnGameOverSound(reason string)
	OnOrientation(white bool)
}

// TurnObserver is implemented by sinks that react when the local player may move.
// Implementations must not submit moves synchronously from OnYourTurn.
type TurnObserver interface {
	OnYourTurn(position string, white bool)
}

// MoveObserver is implemented by sinks that track moves the local player has sent but
// the server has not yet confirmed.
type MoveObserver interface {
	OnMoveSent(from, to string)
}

// PlayersObserver is implemented by sinks that show player names.
type PlayersObserver interface {
	OnPlayers(white, black string)
}

// Multi fans every call out to each member in order.
type Multi []Sink

func (m Multi) OnStatus(text string) {
	for _, s := range m {
		s.OnStatus(text)
	}
}

func (m Multi) OnBoard(position string) {
	for _, s := range m {
		s.OnBoard(position)
	}
}

func (m Multi) OnClockDisplay(white, black string, whiteToMove bool) {
	for _, s := range m {
		s.OnClockDisplay(white, black, whiteToMove)
	}
}

func (m Multi) OnMoveSound() {
	for _, s := range m {
		s.OnMoveSound()
	}
}

func (m Multi) OnGameOverSound(reason string) {
	for _, s := range m {
		s.OnGameOverSound(reason)
	}
}

func (m Multi) OnOrientation(white bool) {
	for _, s := range m {
		s.OnOrientation(white)
	}
}

func (m Multi) OnYourTurn(position string, white bool) {
	for _, s := range m {
		if o, ok := s.(TurnObserver); ok {
			o.OnYourTurn(position, white)
		}
	}
}

func (m Multi) OnMoveSent(from, to string) {
	for _, s := range m {
		if o, ok := s.(MoveObserver); ok {
			o.OnMoveSent(from, to)
		}
	}
}

func (m Multi) OnPlayers(white, black string) {
	for _, s := range m {
		if o, ok := s.(PlayersObserver); ok {
			o.OnPlayers(white, black)
		}
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) OnStatus(string)                     {}
func (Nop) OnBoard(string)                      {}
func (Nop) OnClockDisplay(string, string, bool) {}
func (Nop) OnMoveSound()                        {}
func (Nop) OnGameOverSound(string)              {}
func (Nop) OnOrientation(bool)                  {}
