package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxLineBytes   = 64 * 1024
	readBufferSize = 4096
)

// TCP speaks the line protocol over a plain socket, one line per "\n".
type TCP struct {
	addr string
	opts options

	conn  net.Conn
	connM sync.RWMutex
	wmu   sync.Mutex

	events chan Event

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewTCP(addr string, opts ...Option) *TCP {
	o := buildOptions(opts)
	return &TCP{
		addr:   addr,
		opts:   o,
		events: make(chan Event, o.bufferSize),
		stopCh: make(chan struct{}),
	}
}

func (t *TCP) Events() <-chan Event { return t.events }

func (t *TCP) Connect(ctx context.Context) error {
	if t.current() != nil {
		return nil
	}
	err := dialWithRetry(ctx, t.opts.dialAttempts, t.opts.log, func(ctx context.Context) error {
		d := net.Dialer{Timeout: t.opts.dialTimeout, KeepAlive: 30 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", t.addr)
		if err != nil {
			return err
		}
		t.connM.Lock()
		t.conn = conn
		t.connM.Unlock()
		return nil
	})
	if err != nil {
		return err
	}
	t.opts.log.Info("tcp_connected", zap.String("addr", t.addr))
	t.emit(Connected{})

	t.wg.Add(1)
	go t.listen()
	return nil
}

func (t *TCP) Send(ctx context.Context, line string) error {
	conn := t.current()
	if conn == nil {
		return ErrNotConnected
	}
	select {
	case <-t.stopCh:
		return ErrClosed
	default:
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		defer conn.SetWriteDeadline(time.Time{})
	}
	_, err := io.WriteString(conn, line+"\n")
	return err
}

// listen reads newline-terminated lines. A line longer than maxLineBytes is discarded
// with a warning and reading goes on with the next one.
func (t *TCP) listen() {
	defer t.wg.Done()
	defer close(t.events)

	br := bufio.NewReaderSize(t.current(), readBufferSize)
	var (
		line    []byte
		dropped int // bytes of the current line already discarded
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if dropped == 0 && len(line)+len(chunk) <= maxLineBytes {
			line = append(line, chunk...)
		} else {
			dropped += len(line) + len(chunk)
			line = line[:0]
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if dropped > 0 {
			t.opts.log.Warn("tcp_line_too_long", zap.Int("bytes", dropped), zap.Int("limit", maxLineBytes))
			dropped = 0
		} else {
			for _, l := range splitLines(string(line)) {
				if !t.emit(LineReceived{Line: l}) {
					return
				}
			}
		}
		line = line[:0]

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || t.isStopping() {
				err = nil
			}
			t.opts.log.Info("tcp_closed", zap.Error(err))
			t.emit(Closed{Err: err})
			return
		}
	}
}

func (t *TCP) emit(ev Event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.stopCh:
		return false
	}
}

func (t *TCP) Close(ctx context.Context) error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	if conn := t.current(); conn != nil {
		_ = conn.Close()
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (t *TCP) current() net.Conn {
	t.connM.RLock()
	defer t.connM.RUnlock()
	return t.conn
}

func (t *TCP) isStopping() bool {
	select {
	case <-t.stopCh:
		return true
	default:
		return false
	}
}
