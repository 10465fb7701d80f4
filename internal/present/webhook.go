package present

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-live-client/internal/retry"
)

// WebhookSink posts status lines and game results to an HTTP endpoint. Clock ticks and
// board redraws are not forwarded.
type WebhookSink struct {
	url     string
	http    *fasthttp.Client
	log     *zap.Logger
	timeout time.Duration
	retry   int

	state *Snapshot
	q     *asyncQueue
}

type WebhookOption func(*WebhookSink)

func WithWebhookTimeout(d time.Duration) WebhookOption {
	return func(w *WebhookSink) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func WithWebhookRetry(n int) WebhookOption {
	return func(w *WebhookSink) {
		if n > 0 {
			w.retry = n
		}
	}
}

func WithWebhookLogger(l *zap.Logger) WebhookOption {
	return func(w *WebhookSink) {
		if l != nil {
			w.log = l
		}
	}
}

func NewWebhookSink(url string, opts ...WebhookOption) *WebhookSink {
	w := &WebhookSink{
		url:     strings.TrimSpace(url),
		http:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		log:     zap.NewNop(),
		timeout: 5 * time.Second,
		retry:   3,
		state:   NewSnapshot(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.q = newAsyncQueue(64, w.deliver)
	return w
}

func (w *WebhookSink) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout*time.Duration(w.retry+1))
	defer cancel()
	if err := w.post(ctx, ev); err != nil {
		w.log.Warn("webhook_post_failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (w *WebhookSink) post(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.url)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	var lastErr error
	for attempt := 1; attempt <= w.retry; attempt++ {
		err := w.http.DoDeadline(req, resp, w.deadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			err = fmt.Errorf("webhook status=%d", status)
			if !shouldRetryStatus(status) {
				return err
			}
		}
		lastErr = err
		if attempt == w.retry {
			break
		}
		if sleepErr := retry.Sleep(ctx, retry.Backoff(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (w *WebhookSink) deadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(w.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (w *WebhookSink) emit(typ, text string) {
	ev := Event{Type: typ, Text: text, At: time.Now(), View: w.state.View()}
	if !w.q.push(ev) {
		w.log.Debug("webhook_dropped", zap.String("type", typ))
	}
}

func (w *WebhookSink) OnStatus(text string) {
	w.state.OnStatus(text)
	w.emit(EventStatus, text)
}

func (w *WebhookSink) OnBoard(position string) { w.state.OnBoard(position) }

func (w *WebhookSink) OnClockDisplay(white, black string, whiteToMove bool) {
	w.state.OnClockDisplay(white, black, whiteToMove)
}

func (w *WebhookSink) OnMoveSound() { w.state.OnMoveSound() }

func (w *WebhookSink) OnGameOverSound(reason string) {
	w.state.OnGameOverSound(reason)
	w.emit(EventGameOver, reason)
}

func (w *WebhookSink) OnOrientation(white bool) { w.state.OnOrientation(white) }

func (w *WebhookSink) OnPlayers(white, black string) { w.state.OnPlayers(white, black) }

func (w *WebhookSink) Close(ctx context.Context) error { return w.q.close(ctx) }

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
