// ABOUTME: HTTP transport executing one tool call as a single REST request
// ABOUTME: Serializes arguments as query parameters (GET) or JSON body (POST)

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBodySize bounds how much of a failed response body is carried
// in the returned error.
const maxErrorBodySize = 4 << 10

// defaultCallTimeout matches the 30s budget the backends were written
// against.
const defaultCallTimeout = 30 * time.Second

// RESTTransport invokes tools exposed by statically configured HTTP
// services. No retries: a failed call surfaces immediately to the caller.
type RESTTransport struct {
	client *http.Client
	logger *slog.Logger
}

// NewRESTTransport creates a transport with a 30s client timeout.
// Pass nil logger for default.
func NewRESTTransport(logger *slog.Logger) *RESTTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTTransport{
		client: &http.Client{Timeout: defaultCallTimeout},
		logger: logger.With("component", "rest_transport"),
	}
}

// Call executes one tool call against the binding's endpoint and wraps the
// response body in the normalized result envelope. Any non-2xx status is an
// error carrying the status and body detail.
func (t *RESTTransport) Call(ctx context.Context, binding HTTPBinding, name string, args json.RawMessage) (*Result, error) {
	callURL := strings.TrimRight(binding.Host, "/") + binding.Endpoint

	var req *http.Request
	var err error
	if binding.Method == http.MethodGet {
		req, err = t.buildGetRequest(ctx, callURL, args)
	} else {
		req, err = t.buildPostRequest(ctx, callURL, args)
	}
	if err != nil {
		return nil, fmt.Errorf("building request for tool %q: %w", name, err)
	}

	t.logger.Debug("calling http tool",
		"tool_name", name,
		"method", binding.Method,
		"url", callURL)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http tool %q request failed: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for tool %q: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := string(body)
		if len(detail) > maxErrorBodySize {
			detail = detail[:maxErrorBodySize]
		}
		return nil, fmt.Errorf("http tool %q returned status %d: %s", name, resp.StatusCode, detail)
	}

	result := &Result{Content: Content{Text: string(body)}}
	if json.Valid(body) {
		result.Structured = json.RawMessage(body)
	}
	return result, nil
}

func (t *RESTTransport) buildGetRequest(ctx context.Context, callURL string, args json.RawMessage) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callURL, nil)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		values, err := queryValues(args)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = values.Encode()
	}
	return req, nil
}

func (t *RESTTransport) buildPostRequest(ctx context.Context, callURL string, args json.RawMessage) (*http.Request, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(args))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// queryValues flattens a JSON object of arguments into URL query values.
// Scalars keep their JSON text form; nested values are re-encoded as JSON.
func queryValues(args json.RawMessage) (url.Values, error) {
	var params map[string]any
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("GET arguments must be a JSON object: %w", err)
	}

	values := url.Values{}
	for key, val := range params {
		switch v := val.(type) {
		case string:
			values.Set(key, v)
		case nil:
			values.Set(key, "")
		case bool, float64:
			values.Set(key, fmt.Sprint(v))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding argument %q: %w", key, err)
			}
			values.Set(key, string(encoded))
		}
	}
	return values, nil
}
