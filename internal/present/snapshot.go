package present

import (
	"sync"
	"time"
)

const defaultStatusHistory = 20

// View is the JSON-friendly picture of the game kept by Snapshot.
type View struct {
	White       string    `json:"white"`
	Black       string    `json:"black"`
	Position    string    `json:"position"`
	WhiteClock  string    `json:"white_clock"`
	BlackClock  string    `json:"black_clock"`
	WhiteToMove bool      `json:"white_to_move"`
	WhiteBottom bool      `json:"white_bottom"`
	YourTurn    bool      `json:"your_turn"`
	Moves       int       `json:"moves"`
	GameOver    bool      `json:"game_over"`
	Reason      string    `json:"reason,omitempty"`
	Status      []string  `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot is a Sink that keeps the latest View for readers on other goroutines.
type Snapshot struct {
	mu         sync.RWMutex
	view       View
	maxHistory int
	now        func() time.Time
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		view:       View{WhiteBottom: true, Status: []string{}},
		maxHistory: defaultStatusHistory,
		now:        time.Now,
	}
}

// View returns a copy of the current state.
func (s *Snapshot) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	v.Status = append([]string(nil), s.view.Status...)
	return v
}

func (s *Snapshot) update(fn func(v *View)) {
	s.mu.Lock()
	fn(&s.view)
	s.view.UpdatedAt = s.now()
	s.mu.Unlock()
}

func (s *Snapshot) OnStatus(text string) {
	s.update(func(v *View) {
		v.Status = append(v.Status, text)
		if over := len(v.Status) - s.maxHistory; over > 0 {
			v.Status = append([]string(nil), v.Status[over:]...)
		}
	})
}

func (s *Snapshot) OnBoard(position string) {
	s.update(func(v *View) { v.Position = position })
}

func (s *Snapshot) OnClockDisplay(white, black string, whiteToMove bool) {
	s.update(func(v *View) {
		v.WhiteClock, v.BlackClock, v.WhiteToMove = white, black, whiteToMove
	})
}

func (s *Snapshot) OnMoveSound() {
	s.update(func(v *View) {
		v.Moves++
		v.YourTurn = false
	})
}

func (s *Snapshot) OnGameOverSound(reason string) {
	s.update(func(v *View) {
		v.GameOver = true
		v.Reason = reason
		v.YourTurn = false
	})
}

// OnOrientation is only sent when a game is paired or started, so it also clears the
// result of a previous game.
func (s *Snapshot) OnOrientation(white bool) {
	s.update(func(v *View) {
		if v.GameOver {
			v.GameOver, v.Reason, v.Moves = false, "", 0
		}
		v.WhiteBottom = white
	})
}

func (s *Snapshot) OnPlayers(white, black string) {
	s.update(func(v *View) { v.White, v.Black = white, black })
}

func (s *Snapshot) OnYourTurn(string, bool) {
	s.update(func(v *View) { v.YourTurn = true })
}

// OnMoveSent ends the local turn as soon as the move leaves, before the server echoes it.
func (s *Snapshot) OnMoveSent(string, string) {
	s.update(func(v *View) { v.YourTurn = false })
}
