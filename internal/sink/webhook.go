package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/panelread/readout"
	"github.com/hazyhaar/panelread/retry"
)

// Webhook POSTs JSON to a URL. Transport errors and 5xx responses are
// retried at a fixed interval; 4xx responses are not.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	clock      retry.Clock
	logger     *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the pause between retries. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookClock sets the clock used for retry pauses.
func WithWebhookClock(c retry.Clock) WebhookOption {
	return func(w *Webhook) { w.clock = c }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a Webhook sink targeting the given URL.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		clock:      retry.RealClock(),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

func (w *Webhook) SendResult(ctx context.Context, res readout.Result) error {
	return w.post(ctx, "result", res)
}

func (w *Webhook) SendFailure(ctx context.Context, f readout.Failure) error {
	return w.post(ctx, "failure", f)
}

func (w *Webhook) Close() error { return nil }

func (w *Webhook) post(ctx context.Context, typ string, data any) error {
	body, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	gov := retry.Governor{
		Name:     "webhook " + typ,
		Attempts: w.maxRetries + 1,
		Interval: w.backoff,
		Clock:    w.clock,
		Logger:   w.logger,
	}
	err = gov.Do(ctx, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			w.logger.Warn("webhook: request failed", "attempt", attempt+1, "error", err)
			return retry.Transient(err)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			w.logger.Warn("webhook: bad status", "attempt", attempt+1, "status", resp.StatusCode)
			return retry.Transient(fmt.Errorf("webhook: status %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook: status %d", resp.StatusCode)
		}
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
