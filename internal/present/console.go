package present

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/chess-live-client/internal/render"
)

// Console writes a text rendition of the game to a terminal.
type Console struct {
	out  io.Writer
	bell bool
	ansi bool

	mu          sync.Mutex
	whiteBottom bool
	white       string
	black       string
}

type ConsoleOption func(*Console)

// WithBell rings the terminal bell for move and game-over cues.
func WithBell(on bool) ConsoleOption { return func(c *Console) { c.bell = on } }

// WithANSI highlights the side to move with reverse video instead of brackets.
func WithANSI(on bool) ConsoleOption { return func(c *Console) { c.ansi = on } }

func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{out: out, whiteBottom: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) OnStatus(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.printf("* %s\n", text)
}

func (c *Console) OnBoard(position string) {
	c.mu.Lock()
	whiteBottom := c.whiteBottom
	c.mu.Unlock()

	grid, err := render.ASCII(position, whiteBottom)
	if err != nil {
		c.printf("position: %s\n", position)
		return
	}
	c.printf("\n%s", grid)
}

func (c *Console) OnClockDisplay(white, black string, whiteToMove bool) {
	c.mu.Lock()
	wl := render.ClockLabel(c.white, white)
	bl := render.ClockLabel(c.black, black)
	c.mu.Unlock()

	if whiteToMove {
		wl = c.highlight(wl)
	} else {
		bl = c.highlight(bl)
	}
	c.printf("%s  %s\n", wl, bl)
}

func (c *Console) OnMoveSound() {
	if c.bell {
		c.printf("\a")
	}
}

func (c *Console) OnGameOverSound(reason string) {
	if c.bell {
		c.printf("\a\a")
	}
	if strings.TrimSpace(reason) != "" {
		c.printf("=== %s ===\n", reason)
	}
}

func (c *Console) OnOrientation(white bool) {
	c.mu.Lock()
	c.whiteBottom = white
	c.mu.Unlock()
}

func (c *Console) OnPlayers(white, black string) {
	c.mu.Lock()
	c.white, c.black = white, black
	c.mu.Unlock()
	c.printf("%s (white) vs %s (black)\n", white, black)
}

func (c *Console) OnYourTurn(string, bool) {
	c.printf("> your move (e.g. e2 e4)\n")
}

func (c *Console) highlight(label string) string {
	if c.ansi {
		return "\033[1;7m" + label + "\033[0m"
	}
	return "[" + label + "]"
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}
