package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return nil
}

func TestSplitLines(t *testing.T) {
	got := splitLines("INFO a\r\n\nGAME_ACKED g1\n  \n")
	if len(got) != 2 || got[0] != "INFO a" || got[1] != "GAME_ACKED g1" {
		t.Fatalf("splitLines: %q", got)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	received := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusInternalError, "")
		ctx := r.Context()
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		received <- string(data)
		_ = c.Write(ctx, websocket.MessageText, []byte("INFO hello\nGAME_ACKED g1\n"))
		_ = c.Close(websocket.StatusNormalClosure, "bye")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws := NewWebSocket(url, WithPingInterval(0), WithDialAttempts(1))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ws.Close(ctx)

	if _, ok := nextEvent(t, ws.Events()).(Connected); !ok {
		t.Fatalf("expected Connected first")
	}
	if err := ws.Send(ctx, "WATCH g1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-received:
		if got != "WATCH g1\n" {
			t.Fatalf("server got %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not receive")
	}

	if ev := nextEvent(t, ws.Events()); ev != (LineReceived{Line: "INFO hello"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
	if ev := nextEvent(t, ws.Events()); ev != (LineReceived{Line: "GAME_ACKED g1"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
	closed, ok := nextEvent(t, ws.Events()).(Closed)
	if !ok {
		t.Fatalf("expected Closed")
	}
	if closed.Err != nil {
		t.Fatalf("expected clean close, got %v", closed.Err)
	}
}

func TestWebSocketDialFailure(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/none", WithDialAttempts(2), WithDialTimeout(200*time.Millisecond))
	if err := ws.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	if err := ws.Send(context.Background(), "WATCH g1"); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestTCPRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		r := bufio.NewReader(c)
		line, _ := r.ReadString('\n')
		received <- line
		_, _ = c.Write([]byte("GAME_PAIRED g1 alice bob 300.00 0.00\r\nINFO  spaced   text\n"))
	}()

	tr, err := New(KindTCP, ln.Addr().String(), WithDialAttempts(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close(ctx)

	if _, ok := nextEvent(t, tr.Events()).(Connected); !ok {
		t.Fatalf("expected Connected first")
	}
	if err := tr.Send(ctx, "JOIN spring alice"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := <-received; got != "JOIN spring alice\n" {
		t.Fatalf("server got %q", got)
	}
	if ev := nextEvent(t, tr.Events()); ev != (LineReceived{Line: "GAME_PAIRED g1 alice bob 300.00 0.00"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
	if ev := nextEvent(t, tr.Events()); ev != (LineReceived{Line: "INFO  spaced   text"}) {
		t.Fatalf("unexpected event %#v", ev)
	}
	if _, ok := nextEvent(t, tr.Events()).(Closed); !ok {
		t.Fatalf("expected Closed after server hangup")
	}
}

func TestTCPSkipsOverlongLine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		huge := "INFO " + strings.Repeat("x", 70*1024) + "\n"
		_, _ = c.Write([]byte("INFO before\n" + huge + "INFO after\n"))
	}()

	tr := NewTCP(ln.Addr().String(), WithDialAttempts(1))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close(ctx)

	if _, ok := nextEvent(t, tr.Events()).(Connected); !ok {
		t.Fatalf("expected Connected first")
	}
	for _, want := range []string{"INFO before", "INFO after"} {
		if ev := nextEvent(t, tr.Events()); ev != (LineReceived{Line: want}) {
			t.Fatalf("want %q, got %#v", want, ev)
		}
	}
	closed, ok := nextEvent(t, tr.Events()).(Closed)
	if !ok || closed.Err != nil {
		t.Fatalf("expected clean Closed, got %#v", closed)
	}
}

func TestWebSocketFrameOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusInternalError, "")
		_ = c.Write(r.Context(), websocket.MessageText, []byte("INFO "+strings.Repeat("x", 4096)))
		_, _, _ = c.Read(r.Context())
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws := NewWebSocket(url, WithPingInterval(0), WithDialAttempts(1), WithMaxFrameBytes(1024))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ws.Close(ctx)

	if _, ok := nextEvent(t, ws.Events()).(Connected); !ok {
		t.Fatalf("expected Connected first")
	}
	closed, ok := nextEvent(t, ws.Events()).(Closed)
	if !ok || !errors.Is(closed.Err, ErrFrameTooLarge) {
		t.Fatalf("expected Closed with ErrFrameTooLarge, got %#v", closed)
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("carrier-pigeon", "x"); err == nil {
		t.Fatalf("expected error")
	}
}
