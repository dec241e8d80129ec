// ABOUTME: SSE consumer for the bridge event stream
// ABOUTME: Blocks on /events and returns the next query text as it arrives

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Consumer reads server-sent events from a running bridge. Agents use it to
// block until the next user query arrives.
type Consumer struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewConsumer creates a consumer for the bridge at baseURL
// (e.g. "http://127.0.0.1:8081"). The HTTP client has no timeout because
// the event stream is long-lived; cancel the context to stop waiting.
func NewConsumer(baseURL string, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger.With("component", "client"),
	}
}

// WaitForQuery opens the event stream and blocks until one query arrives,
// then closes the stream and returns the query text. Malformed frames are
// skipped. Returns ctx.Err() if the context is cancelled first.
func (c *Consumer) WaitForQuery(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return "", fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("connecting to event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	c.logger.Debug("listening for events", "url", req.URL.String())

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		var frame struct {
			Query string `json:"query"`
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			c.logger.Warn("skipping malformed event frame", "error", err)
			continue
		}
		if frame.Query == "" {
			continue
		}
		return frame.Query, nil
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading event stream: %w", err)
	}
	return "", fmt.Errorf("event stream closed before a query arrived")
}

// Health checks the bridge's /health endpoint and returns the reported status.
func (c *Consumer) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("checking health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding health response: %w", err)
	}
	return body.Status, nil
}
