package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// WebSocket speaks the line protocol over text frames, the way the browser client does.
// A frame may carry several newline-separated lines.
type WebSocket struct {
	url  string
	opts options

	conn  *websocket.Conn
	connM sync.RWMutex

	events chan Event

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewWebSocket(url string, opts ...Option) *WebSocket {
	o := buildOptions(opts)
	return &WebSocket{
		url:    url,
		opts:   o,
		events: make(chan Event, o.bufferSize),
		stopCh: make(chan struct{}),
	}
}

func (ws *WebSocket) Events() <-chan Event { return ws.events }

// Connect dials the server, retrying with backoff, then starts the reader.
func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.connM.RLock()
	connected := ws.conn != nil
	ws.connM.RUnlock()
	if connected {
		return nil
	}

	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	err := dialWithRetry(ctx, ws.opts.dialAttempts, ws.opts.log, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, ws.opts.dialTimeout)
		defer cancel()
		conn, _, err := websocket.Dial(dialCtx, ws.url, &websocket.DialOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			return err
		}
		conn.SetReadLimit(ws.opts.maxFrame)
		ws.connM.Lock()
		ws.conn = conn
		ws.connM.Unlock()
		return nil
	})
	if err != nil {
		ws.rootCancel()
		return err
	}
	ws.opts.log.Info("ws_connected", zap.String("url", ws.url))
	ws.emit(Connected{})

	ws.wg.Add(1)
	go ws.listen()
	if ws.opts.pingInterval > 0 {
		ws.wg.Add(1)
		go ws.pingLoop()
	}
	return nil
}

func (ws *WebSocket) Send(ctx context.Context, line string) error {
	conn := ws.current()
	if conn == nil {
		return ErrNotConnected
	}
	if ws.isStopping() {
		return ErrClosed
	}
	return conn.Write(ctx, websocket.MessageText, []byte(line+"\n"))
}

func (ws *WebSocket) listen() {
	defer ws.wg.Done()
	defer close(ws.events)

	conn := ws.current()
	for {
		_, data, err := conn.Read(ws.rootCtx)
		if err != nil {
			switch {
			case ws.isStopping() || websocket.CloseStatus(err) == websocket.StatusNormalClosure:
				err = nil
			case strings.Contains(err.Error(), "read limited at"):
				ws.opts.log.Warn("ws_frame_too_large", zap.Int64("limit", ws.opts.maxFrame), zap.Error(err))
				err = fmt.Errorf("%w: %v", ErrFrameTooLarge, err)
			}
			ws.opts.log.Info("ws_closed", zap.Error(err))
			ws.emit(Closed{Err: err})
			return
		}
		for _, line := range splitLines(string(data)) {
			if !ws.emit(LineReceived{Line: line}) {
				return
			}
		}
	}
}

func (ws *WebSocket) pingLoop() {
	defer ws.wg.Done()
	t := time.NewTicker(ws.opts.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
			conn := ws.current()
			if conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				consecutivePingFailures = 0
				continue
			}
			consecutivePingFailures++
			ws.opts.log.Warn("ws_ping_failed", zap.Int("consecutive", consecutivePingFailures), zap.Error(err))
			if consecutivePingFailures >= 2 {
				// closing the conn makes listen report Closed
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// emit delivers ev unless the transport is stopping.
func (ws *WebSocket) emit(ev Event) bool {
	select {
	case ws.events <- ev:
		return true
	case <-ws.stopCh:
		return false
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	conn := ws.current()
	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "close"); err != nil && !errors.Is(err, context.Canceled) {
			ws.opts.log.Debug("ws_close", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if ws.rootCancel != nil {
			ws.rootCancel()
		}
		return nil
	}
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.connM.RLock()
	defer ws.connM.RUnlock()
	return ws.conn
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}
