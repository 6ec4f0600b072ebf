// Package testkit holds shared test helpers: a stub HTTP transport for
// outbound calls and JSON assertion helpers built on testify.
package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── MockTransport ────────────────────────────────────────────────────────────

// MockTransport implements http.RoundTripper. It matches outgoing requests
// against registered stubs and returns synthetic responses instead of making
// real network calls.
//
// Install it on the shared client before the test:
//
//	mt := testkit.NewMockTransport()
//	mt.Stub("POST", "https://oauth2.googleapis.com/token", 200, `{"access_token":"tok"}`)
//	httpclient.DefaultClient.Transport = mt
//	defer httpclient.ResetTransport()
type MockTransport struct {
	mu    sync.Mutex
	stubs []*stub
}

type stub struct {
	method    string
	urlPrefix string
	status    int
	body      string
	header    http.Header
	calls     int
}

// NewMockTransport creates an empty transport. Unmatched requests get a 404.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Stub registers a synthetic response for requests whose method matches and
// whose URL starts with urlPrefix. An empty method matches any method.
func (mt *MockTransport) Stub(method, urlPrefix string, status int, body string) *MockTransport {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	mt.stubs = append(mt.stubs, &stub{
		method:    strings.ToUpper(method),
		urlPrefix: urlPrefix,
		status:    status,
		body:      body,
		header:    h,
	})
	return mt
}

// RoundTrip intercepts the outgoing request and returns a synthetic response.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for _, s := range mt.stubs {
		if s.method != "" && s.method != req.Method {
			continue
		}
		if s.urlPrefix != "" && !strings.HasPrefix(req.URL.String(), s.urlPrefix) {
			continue
		}
		s.calls++
		return &http.Response{
			StatusCode: s.status,
			Status:     fmt.Sprintf("%d %s", s.status, http.StatusText(s.status)),
			Header:     s.header,
			Body:       io.NopCloser(bytes.NewReader([]byte(s.body))),
			Request:    req,
		}, nil
	}

	return &http.Response{
		StatusCode: http.StatusNotFound,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{"error":"no stub configured"}`)),
		Request:    req,
	}, nil
}

// Calls returns how many requests matched the stub at index i, in
// registration order.
func (mt *MockTransport) Calls(i int) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if i < 0 || i >= len(mt.stubs) {
		return 0
	}
	return mt.stubs[i].calls
}

// AssertAllCalled fails the test if any registered stub was never matched.
func (mt *MockTransport) AssertAllCalled(t *testing.T) {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for _, s := range mt.stubs {
		assert.NotZero(t, s.calls,
			"stub %s %s was never called", s.method, s.urlPrefix)
	}
}

// ─── JSON assertions ──────────────────────────────────────────────────────────

// AssertJSONBody deep-compares two JSON documents, ignoring key order and
// whitespace, and reports field-level diffs on failure.
func AssertJSONBody(t *testing.T, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var expVal, actVal interface{}

	require.NoError(t, json.Unmarshal(expected, &expVal),
		"expected document is not valid JSON")

	if !assert.NoError(t, json.Unmarshal(actual, &actVal),
		"actual response is not valid JSON\nbody: %s", string(actual),
	) {
		return
	}

	assert.Equal(t, expVal, actVal, "response body mismatch")
}

// DecodeJSON unmarshals body into a generic map, failing the test on error.
func DecodeJSON(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out),
		"body is not a JSON object\nbody: %s", string(body))
	return out
}
