// ABOUTME: Tests for the REST transport request shapes and error handling
// ABOUTME: Uses a mock endpoint capturing method, query, and body

package tool

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture records the last request the mock endpoint saw.
type capture struct {
	method string
	path   string
	query  map[string]string
	body   []byte
}

func newMockEndpoint(t *testing.T, status int, response string) (*httptest.Server, *capture) {
	t.Helper()
	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.method = r.Method
		cap.path = r.URL.Path
		cap.query = map[string]string{}
		for k := range r.URL.Query() {
			cap.query[k] = r.URL.Query().Get(k)
		}
		cap.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

func TestRESTTransport_GETSerializesQueryParams(t *testing.T) {
	srv, cap := newMockEndpoint(t, http.StatusOK, `{"ok":true}`)
	tr := NewRESTTransport(nil)

	binding := HTTPBinding{Host: srv.URL, Endpoint: "/lookup", Method: "GET"}
	args := json.RawMessage(`{"q":"hello world","limit":5,"strict":true}`)

	res, err := tr.Call(context.Background(), binding, "lookup", args)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, cap.method)
	assert.Equal(t, "/lookup", cap.path)
	assert.Equal(t, "hello world", cap.query["q"])
	assert.Equal(t, "5", cap.query["limit"])
	assert.Equal(t, "true", cap.query["strict"])
	assert.Empty(t, cap.body)

	assert.Equal(t, `{"ok":true}`, res.Content.Text)
	assert.JSONEq(t, `{"ok":true}`, string(res.Structured))
}

func TestRESTTransport_GETNestedArgumentsEncodedAsJSON(t *testing.T) {
	srv, cap := newMockEndpoint(t, http.StatusOK, "ok")
	tr := NewRESTTransport(nil)

	binding := HTTPBinding{Host: srv.URL, Endpoint: "/lookup", Method: "GET"}
	_, err := tr.Call(context.Background(), binding, "lookup", json.RawMessage(`{"filter":{"a":1}}`))
	require.NoError(t, err)

	assert.JSONEq(t, `{"a":1}`, cap.query["filter"])
}

func TestRESTTransport_POSTSendsJSONBody(t *testing.T) {
	srv, cap := newMockEndpoint(t, http.StatusOK, `sent`)
	tr := NewRESTTransport(nil)

	binding := HTTPBinding{Host: srv.URL + "/", Endpoint: "/send_email", Method: "POST"}
	args := json.RawMessage(`{"to":"a@b.c","subject":"hi"}`)

	res, err := tr.Call(context.Background(), binding, "send_email", args)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, cap.method)
	assert.Equal(t, "/send_email", cap.path)
	assert.JSONEq(t, string(args), string(cap.body))

	assert.Equal(t, "sent", res.Content.Text)
	assert.Nil(t, res.Structured, "non-JSON body has no structured content")
}

func TestRESTTransport_POSTNilArgumentsSendsEmptyObject(t *testing.T) {
	srv, cap := newMockEndpoint(t, http.StatusOK, "ok")
	tr := NewRESTTransport(nil)

	binding := HTTPBinding{Host: srv.URL, Endpoint: "/x", Method: "POST"}
	_, err := tr.Call(context.Background(), binding, "x", nil)
	require.NoError(t, err)

	assert.JSONEq(t, `{}`, string(cap.body))
}

func TestRESTTransport_Non2xxIsError(t *testing.T) {
	srv, _ := newMockEndpoint(t, http.StatusBadGateway, `upstream exploded`)
	tr := NewRESTTransport(nil)

	binding := HTTPBinding{Host: srv.URL, Endpoint: "/x", Method: "POST"}
	_, err := tr.Call(context.Background(), binding, "x", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestRESTTransport_NetworkErrorPropagates(t *testing.T) {
	tr := NewRESTTransport(nil)

	// Closed server: connection refused
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	binding := HTTPBinding{Host: url, Endpoint: "/x", Method: "POST"}
	_, err := tr.Call(context.Background(), binding, "x", nil)
	assert.Error(t, err)
}

func TestRESTTransport_GETArgumentsMustBeObject(t *testing.T) {
	srv, _ := newMockEndpoint(t, http.StatusOK, "ok")
	tr := NewRESTTransport(nil)

	binding := HTTPBinding{Host: srv.URL, Endpoint: "/x", Method: "GET"}
	_, err := tr.Call(context.Background(), binding, "x", json.RawMessage(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object")
}
