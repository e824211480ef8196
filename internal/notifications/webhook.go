package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookEndpoint is a single delivery target. An empty Events list subscribes
// to every event.
type WebhookEndpoint struct {
	Name    string
	URL     string
	Events  []string
	Headers map[string]string
}

func (e WebhookEndpoint) subscribed(event string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, candidate := range e.Events {
		if strings.EqualFold(strings.TrimSpace(candidate), event) {
			return true
		}
	}
	return false
}

func (e WebhookEndpoint) label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.URL
}

// WebhookConfig configures the webhook gateway.
type WebhookConfig struct {
	Endpoints     []WebhookEndpoint
	RetrySchedule []time.Duration
	// MaxRetries bounds redelivery attempts after the first one. Zero uses the
	// full schedule; a negative value disables retries.
	MaxRetries int
	Timeout    time.Duration
}

// Envelope is the JSON body posted to webhook endpoints.
type Envelope struct {
	Event  string    `json:"event"`
	Data   any       `json:"data"`
	SentAt time.Time `json:"sentAt"`
}

// WebhookOption customises the gateway.
type WebhookOption func(*WebhookGateway)

func WithHTTPClient(client *http.Client) WebhookOption {
	return func(g *WebhookGateway) {
		if client != nil {
			g.client = client
		}
	}
}

func WithWebhookLogger(logger interfaces.Logger) WebhookOption {
	return func(g *WebhookGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithWebhookClock(clock func() time.Time) WebhookOption {
	return func(g *WebhookGateway) {
		if clock != nil {
			g.now = clock
		}
	}
}

// WebhookGateway posts notifications to HTTP endpoints and retries failed
// deliveries on a fixed schedule.
type WebhookGateway struct {
	endpoints  []WebhookEndpoint
	schedule   []time.Duration
	maxRetries int
	client     *http.Client
	logger     interfaces.Logger
	now        func() time.Time
}

var _ interfaces.NotificationGateway = (*WebhookGateway)(nil)

func NewWebhookGateway(cfg WebhookConfig, opts ...WebhookOption) *WebhookGateway {
	schedule := cfg.RetrySchedule
	if len(schedule) == 0 {
		schedule = DefaultRetrySchedule
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	g := &WebhookGateway{
		endpoints:  append([]WebhookEndpoint(nil), cfg.Endpoints...),
		schedule:   append([]time.Duration(nil), schedule...),
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
		logger:     logging.NoOp(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *WebhookGateway) SendTransitionNotification(ctx context.Context, notification interfaces.TransitionNotification) error {
	return g.deliver(ctx, EventStatusChanged, notification)
}

func (g *WebhookGateway) SendSLAReminder(ctx context.Context, reminder interfaces.SLAReminder) error {
	return g.deliver(ctx, EventSLAReminder, reminder)
}

func (g *WebhookGateway) deliver(ctx context.Context, event string, data any) error {
	body, err := json.Marshal(Envelope{Event: event, Data: data, SentAt: g.now().UTC()})
	if err != nil {
		return fmt.Errorf("notifications: encode %s: %w", event, err)
	}

	var errs []error
	for _, endpoint := range g.endpoints {
		if !endpoint.subscribed(event) {
			continue
		}
		if err := g.post(ctx, endpoint, event, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *WebhookGateway) post(ctx context.Context, endpoint WebhookEndpoint, event string, body []byte) error {
	attempts := 0
	operation := func() error {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Publishing-Event", event)
		for key, value := range endpoint.Headers {
			req.Header.Set(key, value)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		statusErr := &StatusError{Code: resp.StatusCode}
		if !statusErr.Retryable() {
			return backoff.Permanent(statusErr)
		}
		return statusErr
	}

	notify := func(err error, wait time.Duration) {
		g.logger.Warn("notifications.webhook.retry",
			"endpoint", endpoint.label(),
			"event", event,
			"attempt", attempts,
			"wait", wait,
			"error", err,
		)
	}

	policy := backoff.WithContext(g.backoff(), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return &DeliveryError{
			Gateway:  "webhook",
			Event:    event,
			Target:   endpoint.label(),
			Attempts: attempts,
			Err:      err,
		}
	}
	return nil
}

func (g *WebhookGateway) backoff() backoff.BackOff {
	return boundedSchedule(g.schedule, g.maxRetries)
}

// boundedSchedule truncates schedule to maxRetries delays. Zero keeps the whole
// schedule and a negative value disables retries.
func boundedSchedule(schedule []time.Duration, maxRetries int) backoff.BackOff {
	switch {
	case maxRetries < 0:
		schedule = nil
	case maxRetries > 0 && maxRetries < len(schedule):
		schedule = schedule[:maxRetries]
	}
	return &scheduleBackOff{delays: schedule}
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the response is worth redelivering. Client
// errors are final except for request timeouts and rate limiting.
func (e *StatusError) Retryable() bool {
	if e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests {
		return true
	}
	return e.Code < 400 || e.Code >= 500
}

// scheduleBackOff walks a fixed list of delays and then stops.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	delay := b.delays[b.next]
	b.next++
	return delay
}

func (b *scheduleBackOff) Reset() {
	b.next = 0
}
