package alert

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
	"github.com/fjkiani/lotto-machine-sub000/pkg/httputil"
)

// WebhookSink POSTs the alert JSON body to a configured endpoint.
// Retries with bounded backoff live in the HTTP client; a circuit
// breaker stops hammering an endpoint that is down.
type WebhookSink struct {
	url     string
	client  *httputil.Client
	breaker *gobreaker.CircuitBreaker
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(url string, client *httputil.Client) *WebhookSink {
	settings := gobreaker.Settings{
		Name:    "alert-webhook",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &WebhookSink{
		url:     url,
		client:  client.WithRetry(2, time.Second),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name implements contracts.AlertSink.
func (s *WebhookSink) Name() string { return "webhook" }

// Send implements contracts.AlertSink. The JSON body is the documented
// {source, symbol, kind, action, score, factors[], price, timestamp}
// webhook contract.
func (s *WebhookSink) Send(ctx context.Context, msg contracts.AlertMessage) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		resp, err := s.client.PostJSON(ctx, s.url, msg)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil, nil
	})

	if err != nil {
		return &contracts.DeliveryError{Sink: s.Name(), Attempts: 3, Err: err}
	}
	return nil
}
