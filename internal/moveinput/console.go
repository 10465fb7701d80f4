package moveinput

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chess-live-client/internal/protocol"
	"github.com/park285/chess-live-client/internal/render"
	"github.com/park285/chess-live-client/internal/session"
)

// Submitter is the part of session.Runner a move source talks to.
type Submitter interface {
	TrySubmitMove(ctx context.Context, m session.MoveIntent) (session.Verdict, error)
	Resign(ctx context.Context) error
	Say(ctx context.Context, text string) error
	RejectText(reason string) string
}

// ErrQuit is returned by Reader.Run when the user types quit.
var ErrQuit = errors.New("quit requested")

// Reader turns typed lines into moves and commands:
//
//	e2 e4 | e2e4 | e2-e4   move
//	resign                 give up
//	say <text>             chat
//	quit                   stop the client
type Reader struct {
	in       io.Reader
	out      io.Writer
	sub      Submitter
	position func() string
	log      *zap.Logger
}

// NewReader reads from in and reports rejections to out. position returns the current
// board so the moving piece can be looked up; it may be nil.
func NewReader(in io.Reader, out io.Writer, sub Submitter, position func() string, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	if position == nil {
		position = func() string { return "" }
	}
	return &Reader{in: in, out: out, sub: sub, position: position, log: log}
}

// Run blocks until ctx is done, input ends, or the user quits. End of input returns nil.
func (r *Reader) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := r.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (r *Reader) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	word, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(word) {
	case "quit", "exit":
		return ErrQuit
	case "resign":
		return r.report(r.sub.Resign(ctx))
	case "say":
		return r.report(r.sub.Say(ctx, rest))
	}

	from, to, ok := ParseMove(line)
	if !ok {
		r.printf("? %q: type a move like e2 e4, or resign, say <text>, quit\n", line)
		return nil
	}
	v, err := r.sub.TrySubmitMove(ctx, session.MoveIntent{
		From:  from,
		To:    to,
		Piece: render.PieceCode(r.position(), from),
	})
	if err != nil {
		return r.report(err)
	}
	if !v.Accepted {
		r.printf("! %s\n", r.sub.RejectText(v.Reason))
	}
	return nil
}

// report prints recoverable command errors and passes a closed session up.
func (r *Reader) report(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrSessionClosed), errors.Is(err, context.Canceled):
		return err
	default:
		r.log.Debug("console_command_failed", zap.Error(err))
		r.printf("! %v\n", err)
		return nil
	}
}

func (r *Reader) printf(format string, args ...any) {
	if r.out != nil {
		_, _ = fmt.Fprintf(r.out, format, args...)
	}
}

// ParseMove accepts "e2 e4", "e2e4" or "e2-e4" in any case.
func ParseMove(line string) (from, to string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.NewReplacer("-", " ", ",", " ").Replace(s)
	fields := strings.Fields(s)
	switch {
	case len(fields) == 2:
		from, to = fields[0], fields[1]
	case len(fields) == 1 && len(fields[0]) == 4:
		from, to = fields[0][:2], fields[0][2:]
	default:
		return "", "", false
	}
	if !protocol.ValidSquare(from) || !protocol.ValidSquare(to) || from == to {
		return "", "", false
	}
	return from, to, true
}
