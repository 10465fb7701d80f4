package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-live-client/internal/retry"
)

var (
	ErrNotConnected = errors.New("transport not connected")
	ErrClosed       = errors.New("transport closed")

	// ErrFrameTooLarge ends a websocket session whose server sent a frame over the read
	// limit; the websocket library closes the connection with status 1009.
	ErrFrameTooLarge = errors.New("websocket frame over read limit")
)

// Event is delivered on Transport.Events in arrival order.
type Event interface{ transportEvent() }

type Connected struct{}

// LineReceived carries one protocol line with the line terminator removed.
type LineReceived struct{ Line string }

// Closed is the last event on the channel. Err is nil for a normal close.
type Closed struct{ Err error }

func (Connected) transportEvent()    {}
func (LineReceived) transportEvent() {}
func (Closed) transportEvent()       {}

// Transport is a connected line-oriented channel to the game server.
type Transport interface {
	Send(ctx context.Context, line string) error
	Events() <-chan Event
	Close(ctx context.Context) error
}

// Conn is a Transport that still has to be dialled.
type Conn interface {
	Transport
	Connect(ctx context.Context) error
}

type Kind string

const (
	KindWebSocket Kind = "ws"
	KindTCP       Kind = "tcp"
)

type options struct {
	log          *zap.Logger
	dialAttempts int
	dialTimeout  time.Duration
	pingInterval time.Duration
	bufferSize   int
	maxFrame     int64
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDialAttempts sets how many times the initial dial is tried before giving up.
func WithDialAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.dialAttempts = n
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithMaxFrameBytes sets the websocket read limit.
func WithMaxFrameBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrame = n
		}
	}
}

// WithPingInterval sets the websocket keepalive interval; zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) { o.pingInterval = d }
}

func buildOptions(opts []Option) options {
	o := options{
		log:          zap.NewNop(),
		dialAttempts: 3,
		dialTimeout:  10 * time.Second,
		pingInterval: 30 * time.Second,
		bufferSize:   64,
		maxFrame:     1 << 20,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns an undialled connection of the given kind.
func New(kind Kind, addr string, opts ...Option) (Conn, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindWebSocket, "websocket":
		return NewWebSocket(addr, opts...), nil
	case KindTCP:
		return NewTCP(addr, opts...), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", kind)
	}
}

// splitLines breaks a frame into protocol lines, dropping empty ones.
func splitLines(frame string) []string {
	raw := strings.Split(frame, "\n")
	out := raw[:0]
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// dialWithRetry calls dial up to attempts times with exponential backoff between tries.
func dialWithRetry(ctx context.Context, attempts int, log *zap.Logger, dial func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = dial(ctx); lastErr == nil {
			return nil
		}
		log.Warn("transport_dial_failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt == attempts {
			break
		}
		if err := retry.Sleep(ctx, retry.Backoff(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

