// Package webhook delivers signed event envelopes to subscriber endpoints
// with bounded exponential-backoff retries.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/observability"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "SLA-Engine-Webhooks/1.0"
	maxErrorBody     = 512

	// MaxRetryCount bounds retries per delivery and the backoff exponent.
	MaxRetryCount = 10

	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderAttempt   = "X-Webhook-Attempt"
)

// DeliveryRecorder receives the final outcome of each delivery.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, id string, outcome domain.DeliveryOutcome) error
}

// Options configures a Dispatcher.
type Options struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Recorder  DeliveryRecorder
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Dispatcher posts envelopes to subscriptions.
type Dispatcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	recorder  DeliveryRecorder
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// DeliveryResult is the outcome of delivering to one subscription.
type DeliveryResult struct {
	SubscriptionID string `json:"subscription_id"`
	Success        bool   `json:"success"`
	StatusCode     int    `json:"status_code,omitempty"`
	Attempts       int    `json:"attempts"`
	Error          string `json:"error,omitempty"`
}

// BroadcastResult aggregates per-subscription outcomes.
type BroadcastResult struct {
	Event     domain.EventType `json:"event"`
	Matched   int              `json:"matched"`
	Delivered int              `json:"delivered"`
	Failed    int              `json:"failed"`
	Results   []DeliveryResult `json:"results"`
}

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		client:    opts.Client,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.userAgent == "" {
		d.userAgent = DefaultUserAgent
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Backoff returns the wait after a failed attempt: 2^attempt seconds, with
// attempt clamped to [0, MaxRetryCount].
func Backoff(attempt int) time.Duration {
	attempt = max(0, min(attempt, MaxRetryCount))
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Broadcast delivers the event to every active subscription listening for it,
// concurrently. Individual delivery failures are reported in the result, not
// returned as an error.
func (d *Dispatcher) Broadcast(ctx context.Context, event domain.EventType, payload any, ownerID string, subs []domain.WebhookSubscription) (BroadcastResult, error) {
	result := BroadcastResult{Event: event, Results: []DeliveryResult{}}

	var matched []domain.WebhookSubscription
	for _, sub := range subs {
		if sub.Active && sub.Subscribes(event) {
			matched = append(matched, sub)
		}
	}
	result.Matched = len(matched)
	if len(matched) == 0 {
		return result, nil
	}

	envelope := NewEnvelope(event, payload, ownerID, d.now())
	body, err := envelope.Marshal()
	if err != nil {
		return result, fmt.Errorf("webhook: marshal envelope: %w", err)
	}

	results := make([]DeliveryResult, len(matched))
	var wg sync.WaitGroup
	for i := range matched {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.deliver(ctx, &matched[i], envelope, body)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if r.Success {
			result.Delivered++
		} else {
			result.Failed++
		}
	}
	result.Results = results
	return result, nil
}

// Deliver sends one envelope to one subscription, retrying per its retry count.
func (d *Dispatcher) Deliver(ctx context.Context, sub *domain.WebhookSubscription, envelope Envelope) DeliveryResult {
	body, err := envelope.Marshal()
	if err != nil {
		return DeliveryResult{SubscriptionID: sub.ID, Error: fmt.Sprintf("marshal envelope: %v", err)}
	}
	return d.deliver(ctx, sub, envelope, body)
}

// deliver makes up to RetryCount+1 attempts, waiting Backoff(attempt) after
// each failed attempt. Cancelling ctx aborts the in-flight POST and any
// pending retry.
func (d *Dispatcher) deliver(ctx context.Context, sub *domain.WebhookSubscription, envelope Envelope, body []byte) DeliveryResult {
	result := DeliveryResult{SubscriptionID: sub.ID}
	maxAttempts := max(0, min(sub.RetryCount, MaxRetryCount)) + 1

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		status, err := d.post(ctx, sub, envelope, body, attempt)
		result.StatusCode = status
		if err == nil {
			result.Success = true
			result.Error = ""
			break
		}
		result.Error = err.Error()

		if ctx.Err() != nil || attempt >= maxAttempts {
			break
		}
		d.logger.Debug("webhook attempt failed, retrying",
			zap.String("subscription_id", sub.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if err := d.sleep(ctx, Backoff(attempt)); err != nil {
			result.Error = fmt.Sprintf("%s (retry aborted: %v)", result.Error, err)
			break
		}
	}

	if !result.Success {
		d.logger.Warn("webhook delivery failed",
			zap.String("subscription_id", sub.ID),
			zap.String("event", string(envelope.Event)),
			zap.Int("attempts", result.Attempts),
			zap.String("error", result.Error))
	}
	d.metrics.RecordDelivery(string(envelope.Event), result.Success)
	d.record(ctx, sub.ID, result)
	return result
}

func (d *Dispatcher) post(ctx context.Context, sub *domain.WebhookSubscription, envelope Envelope, body []byte, attempt int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	for k, v := range sub.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set(HeaderEvent, string(envelope.Event))
	req.Header.Set(HeaderTimestamp, envelope.Timestamp)
	req.Header.Set(HeaderAttempt, strconv.Itoa(attempt))
	if sub.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(sub.Secret, body))
	}

	start := time.Now()
	resp, err := d.client.Do(req) //nolint:gosec // subscriber URLs are validated at registration
	d.metrics.RecordDeliveryAttempt(time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, nil
}

func (d *Dispatcher) record(ctx context.Context, id string, result DeliveryResult) {
	if d.recorder == nil {
		return
	}
	outcome := domain.DeliveryOutcome{
		StatusCode:  result.StatusCode,
		Error:       result.Error,
		TriggeredAt: d.now(),
	}
	if err := d.recorder.RecordDelivery(context.WithoutCancel(ctx), id, outcome); err != nil {
		d.logger.Warn("record webhook delivery", zap.String("subscription_id", id), zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
