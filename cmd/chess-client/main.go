package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/park285/chess-live-client/internal/config"
	"github.com/park285/chess-live-client/internal/moveinput"
	"github.com/park285/chess-live-client/internal/msgcat"
	"github.com/park285/chess-live-client/internal/obslog"
	"github.com/park285/chess-live-client/internal/present"
	"github.com/park285/chess-live-client/internal/render"
	"github.com/park285/chess-live-client/internal/session"
	"github.com/park285/chess-live-client/internal/statusweb"
	"github.com/park285/chess-live-client/internal/transport"
)

// autoSink lets the auto-player sit in a present.Multi. The player is attached after the
// runner exists and before it starts.
type autoSink struct {
	present.Nop
	*moveinput.AutoPlayer
}

func main() {
	cfg, err := appcfg.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	flush, err := obslog.InitFromEnv()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer flush()

	instance := uuid.NewString()
	logger := obslog.L().With(zap.String("instance", instance), zap.String("mode", cfg.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, instance, logger); err != nil {
		logger.Error("client_exit", zap.Error(err))
		flush()
		os.Exit(1)
	}
	logger.Info("client_exit")
}

func run(ctx context.Context, cfg *appcfg.AppConfig, instance string, logger *zap.Logger) error {
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}

	snap := present.NewSnapshot()
	sinks := present.Multi{
		present.NewConsole(os.Stdout, present.WithBell(cfg.Bell), present.WithANSI(cfg.ANSI)),
		snap,
		present.NewLogSink(logger.Named("present")),
	}

	var (
		rdb     *redis.Client
		redisSk *present.RedisSink
		hook    *present.WebhookSink
	)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
		redisSk = present.NewRedisSink(rdb, cfg.RedisPrefix, present.WithRedisLogger(logger))
		sinks = append(sinks, redisSk)
	}
	if cfg.WebhookURL != "" {
		hook = present.NewWebhookSink(cfg.WebhookURL, present.WithWebhookLogger(logger))
		sinks = append(sinks, hook)
	}
	auto := &autoSink{}
	if cfg.AutoPlay {
		sinks = append(sinks, auto)
	}

	conn, err := transport.New(transport.Kind(cfg.Transport), cfg.ServerURL,
		transport.WithLogger(logger.Named("transport")),
		transport.WithDialAttempts(cfg.DialAttempts),
	)
	if err != nil {
		return err
	}

	mode, _ := session.ParseMode(cfg.Mode)
	runner, err := session.NewRunner(session.Config{
		Mode:               mode,
		GameID:             cfg.GameID,
		Tournament:         cfg.Tournament,
		Player:             cfg.Player,
		SurfaceParseErrors: cfg.SurfaceParseErrors,
	}, conn, sinks,
		session.WithLogger(logger.Named("session")),
		session.WithFormatter(session.NewCatalogFormatter(cat)),
		session.WithInterval(cfg.TickInterval),
		session.ExitOnGameOver(cfg.ExitOnGameOver),
	)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.AutoPlay {
		auto.AutoPlayer = moveinput.NewAutoPlayer(runCtx, runner,
			moveinput.WithThinkTime(cfg.AutoPlayDelay),
			moveinput.WithAutoLogger(logger.Named("auto")),
		)
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, 30*time.Second)
	err = conn.Connect(dialCtx)
	dialCancel()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		if err := runner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.StatusAddr != "" {
		web := statusweb.New(snap, render.NewRenderer(48),
			statusweb.WithInstance(instance),
			statusweb.WithStats(func() any { return runner.Stats() }),
			statusweb.WithLogger(logger.Named("statusweb")),
		)
		g.Go(func() error { return web.ListenAndServe(gctx, cfg.StatusAddr) })
	}
	if mode == session.ModePlay && !cfg.AutoPlay {
		reader := moveinput.NewReader(os.Stdin, os.Stdout, runner,
			func() string { return snap.View().Position }, logger.Named("input"))
		g.Go(func() error {
			err := reader.Run(gctx)
			if errors.Is(err, moveinput.ErrQuit) {
				cancel()
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, session.ErrSessionClosed) {
				return nil
			}
			return err
		})
	}

	runErr := g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if auto.AutoPlayer != nil {
		auto.Wait()
	}
	if err := conn.Close(closeCtx); err != nil && !errors.Is(err, transport.ErrClosed) {
		logger.Warn("transport_close", zap.Error(err))
	}
	if redisSk != nil {
		if err := redisSk.Close(closeCtx); err != nil {
			logger.Warn("redis_sink_close", zap.Error(err))
		}
	}
	if hook != nil {
		if err := hook.Close(closeCtx); err != nil {
			logger.Warn("webhook_sink_close", zap.Error(err))
		}
	}
	st := runner.Stats()
	logger.Info("session_stats",
		zap.Int64("lines", st.Lines),
		zap.Int64("parse_errors", st.ParseErrors),
		zap.Int64("anomalies", st.Anomalies),
	)
	return runErr
}
