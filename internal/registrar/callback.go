package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lakeline/lakeline/internal/metrics"
)

// Notification is the JSON body posted to a team's registration endpoint
// after a dataset is attached.
type Notification struct {
	Pipeline string `json:"pipeline"`
	Dataset  string `json:"dataset"`
	Team     string `json:"team"`
	RuleID   string `json:"ruleId"`
}

// CallbackClient posts registration notifications to an HTTP endpoint. The
// endpoint is a team-operated collaborator, so calls run behind a circuit
// breaker: a flapping endpoint must not slow down a batch of registrations.
type CallbackClient struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewCallbackClient creates a callback client for the endpoint. A zero
// timeout defaults to 10 seconds.
func NewCallbackClient(endpoint string, timeout time.Duration, logger *slog.Logger) *CallbackClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "registration-callback",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		logger: logger,
	}
}

// Notify posts the notification. Failures are counted and logged, not
// returned; registration has already committed by the time this runs.
func (c *CallbackClient) Notify(ctx context.Context, n Notification) {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.post(ctx, n)
	})
	if err != nil {
		metrics.CallbacksFailed.Add(1)
		c.logger.Warn("registration callback failed",
			"endpoint", c.endpoint, "dataset", n.Dataset, "error", err)
		return
	}
	metrics.CallbacksSent.Add(1)
}

func (c *CallbackClient) post(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("callback returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
