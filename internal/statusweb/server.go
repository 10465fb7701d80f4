package statusweb

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-live-client/internal/present"
	"github.com/park285/chess-live-client/internal/render"
)

const renderTimeout = 3 * time.Second

// Server exposes the live game over HTTP:
//
//	GET /healthz     instance id and counters
//	GET /state       present.View as JSON
//	GET /board.png   rendered board with clocks
type Server struct {
	snap     *present.Snapshot
	renderer *render.Renderer
	instance string
	stats    func() any
	log      *zap.Logger
	srv      *fasthttp.Server
}

type Option func(*Server)

func WithInstance(id string) Option { return func(s *Server) { s.instance = id } }

// WithStats adds the value returned by fn to /healthz.
func WithStats(fn func() any) Option { return func(s *Server) { s.stats = fn } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func New(snap *present.Snapshot, renderer *render.Renderer, opts ...Option) *Server {
	s := &Server{snap: snap, renderer: renderer, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = render.NewRenderer(0)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "chess-client",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}
	switch string(ctx.Path()) {
	case "/healthz":
		body := map[string]any{"ok": true, "instance": s.instance}
		if s.stats != nil {
			body["stats"] = s.stats()
		}
		s.writeJSON(ctx, body)
	case "/state":
		s.writeJSON(ctx, s.snap.View())
	case "/board.png":
		s.board(ctx)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) board(ctx *fasthttp.RequestCtx) {
	v := s.snap.View()
	if v.Position == "" {
		ctx.Error("no position yet", fasthttp.StatusServiceUnavailable)
		return
	}
	rctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()
	png, err := s.renderer.RenderPNG(rctx, v.Position, render.Options{
		WhiteBottom: v.WhiteBottom,
		White:       v.White,
		Black:       v.Black,
		WhiteClock:  v.WhiteClock,
		BlackClock:  v.BlackClock,
		WhiteToMove: v.WhiteToMove,
	})
	if err != nil {
		s.log.Warn("statusweb_render_failed", zap.Error(err))
		ctx.Error("render failed", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(png)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode failed", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(b)
}

// Serve accepts on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()
	s.log.Info("statusweb_listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
