package present

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisTTL     = 6 * time.Hour
	redisCommandTimeout = 2 * time.Second
)

// RedisSink mirrors the game to Redis: every update is published on a channel and the
// latest View is kept under a key so late readers can catch up.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger

	state *Snapshot
	q     *asyncQueue
}

type RedisOption func(*RedisSink)

func WithRedisTTL(d time.Duration) RedisOption {
	return func(s *RedisSink) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithRedisLogger(l *zap.Logger) RedisOption {
	return func(s *RedisSink) {
		if l != nil {
			s.log = l
		}
	}
}

// NewRedisSink publishes under "<prefix>:events" and stores the view at "<prefix>:view".
func NewRedisSink(rdb *redis.Client, prefix string, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		rdb:    rdb,
		prefix: strings.TrimSpace(prefix),
		ttl:    defaultRedisTTL,
		log:    zap.NewNop(),
		state:  NewSnapshot(),
	}
	if s.prefix == "" {
		s.prefix = "chess:live"
	}
	for _, opt := range opts {
		opt(s)
	}
	s.q = newAsyncQueue(256, s.write)
	return s
}

func (s *RedisSink) keyView() string       { return s.prefix + ":view" }
func (s *RedisSink) ChannelEvents() string { return s.prefix + ":events" }

func (s *RedisSink) write(ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		s.log.Warn("redis_sink_marshal", zap.Error(err))
		return
	}
	view, err := json.Marshal(ev.View)
	if err != nil {
		s.log.Warn("redis_sink_marshal", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCommandTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, s.keyView(), view, s.ttl).Err(); err != nil {
		s.log.Warn("redis_sink_set", zap.Error(err))
	}
	if err := s.rdb.Publish(ctx, s.ChannelEvents(), raw).Err(); err != nil {
		s.log.Warn("redis_sink_publish", zap.Error(err))
	}
}

func (s *RedisSink) emit(typ, text string) {
	ev := Event{Type: typ, Text: text, At: time.Now(), View: s.state.View()}
	if !s.q.push(ev) {
		s.log.Debug("redis_sink_dropped", zap.String("type", typ))
	}
}

func (s *RedisSink) OnStatus(text string) {
	s.state.OnStatus(text)
	s.emit(EventStatus, text)
}

func (s *RedisSink) OnBoard(position string) {
	s.state.OnBoard(position)
	s.emit(EventBoard, position)
}

func (s *RedisSink) OnClockDisplay(white, black string, whiteToMove bool) {
	s.state.OnClockDisplay(white, black, whiteToMove)
	s.emit(EventClock, "")
}

func (s *RedisSink) OnMoveSound() {
	s.state.OnMoveSound()
	s.emit(EventMove, "")
}

func (s *RedisSink) OnGameOverSound(reason string) {
	s.state.OnGameOverSound(reason)
	s.emit(EventGameOver, reason)
}

// OnOrientation only changes the stored view; it is published with the next update.
func (s *RedisSink) OnOrientation(white bool) {
	s.state.OnOrientation(white)
}

func (s *RedisSink) OnPlayers(white, black string) {
	s.state.OnPlayers(white, black)
	s.emit(EventPlayers, white+" vs "+black)
}

func (s *RedisSink) OnYourTurn(position string, white bool) {
	s.state.OnYourTurn(position, white)
	s.emit(EventTurn, "")
}

func (s *RedisSink) OnMoveSent(from, to string) {
	s.state.OnMoveSent(from, to)
	s.emit(EventMoveSent, from+"-"+to)
}

// Close flushes pending writes.
func (s *RedisSink) Close(ctx context.Context) error {
	return s.q.close(ctx)
}

// LoadView reads the stored view. It returns nil when nothing has been stored.
func LoadView(ctx context.Context, rdb *redis.Client, prefix string) (*View, error) {
	if strings.TrimSpace(prefix) == "" {
		prefix = "chess:live"
	}
	raw, err := rdb.Get(ctx, prefix+":view").Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v View
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
