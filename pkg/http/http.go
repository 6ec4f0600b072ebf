// Package http is the outbound HTTP client used for third-party calls, mainly
// the Google OAuth token and userinfo endpoints. Requests are built fluently
// and can retry with exponential backoff:
//
//	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo").
//	    Bearer(accessToken).
//	    Timeout(10 * time.Second).
//	    Retry(2, 500*time.Millisecond).
//	    Send()
//
//	var info profile
//	err = resp.JSON(&info)
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adityaraj/bazario/pkg/logger"
)

// liveTransport pools connections for real traffic. Tests swap it out through
// DefaultClient and restore it with ResetTransport.
var liveTransport = &gohttp.Transport{
	MaxIdleConns:        200,
	MaxIdleConnsPerHost: 100,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient carries every outgoing request. Tests intercept traffic by
// replacing its Transport:
//
//	http.DefaultClient.Transport = mockTransport
//	defer http.ResetTransport()
var DefaultClient = &gohttp.Client{Transport: liveTransport}

// ResetTransport puts the pooled production transport back on DefaultClient.
func ResetTransport() { DefaultClient.Transport = liveTransport }

// Request accumulates the pieces of one outgoing call.
type Request struct {
	method   string
	url      string
	headers  map[string]string
	body     interface{}
	form     url.Values
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	ctx      context.Context
}

func Get(url string) *Request    { return build(gohttp.MethodGet, url) }
func Post(url string) *Request   { return build(gohttp.MethodPost, url) }
func Put(url string) *Request    { return build(gohttp.MethodPut, url) }
func Patch(url string) *Request  { return build(gohttp.MethodPatch, url) }
func Delete(url string) *Request { return build(gohttp.MethodDelete, url) }

func build(method, url string) *Request {
	return &Request{
		method: method,
		url:    url,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		timeout:  30 * time.Second,
		attempts: 1,
		backoff:  500 * time.Millisecond,
		ctx:      context.Background(),
	}
}

// Header sets one request header.
func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Headers merges h into the request headers.
func (r *Request) Headers(h map[string]string) *Request {
	for k, v := range h {
		r.headers[k] = v
	}
	return r
}

// Bearer sets Authorization: Bearer <token>.
func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the request body. Strings and byte slices go out raw; anything
// else is marshalled to JSON.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// Form switches the body to application/x-www-form-urlencoded, which the
// OAuth token endpoint requires.
func (r *Request) Form(values url.Values) *Request {
	r.form = values
	return r
}

// Timeout bounds each individual attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total attempt count (1 means no retry) and the initial
// backoff, which doubles after every failure.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	r.attempts = n
	r.backoff = wait
	return r
}

// WithContext attaches ctx to every attempt.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Send runs the request, retrying transport failures until the attempt budget
// is spent. Non-2xx responses are returned, not retried; the caller decides
// what a bad status means.
func (r *Request) Send() (*Response, error) {
	wait := r.backoff
	var lastErr error

	for attempt := 1; ; attempt++ {
		resp, err := r.once()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt >= r.attempts {
			break
		}
		logger.Warn("http: attempt failed, retrying",
			"url", r.url, "attempt", attempt, "backoff", wait, "error", err)
		time.Sleep(wait)
		wait *= 2
	}

	return nil, fmt.Errorf("http: all %d attempts failed for %s %s: %w",
		r.attempts, r.method, r.url, lastErr)
}

func (r *Request) once() (*Response, error) {
	payload, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, payload)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Raw: raw}, nil
}

func (r *Request) encodeBody() (io.Reader, string, error) {
	switch {
	case r.form != nil:
		return strings.NewReader(r.form.Encode()), "application/x-www-form-urlencoded", nil
	case r.body == nil:
		return nil, "", nil
	}

	switch v := r.body.(type) {
	case string:
		return strings.NewReader(v), "text/plain", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// Response is the fully-read reply to one request.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// JSON unmarshals the body into dest.
func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Raw) }

// Header reads one response header.
func (r *Response) Header(key string) string { return r.Headers.Get(key) }

// Throw converts a non-2xx status into an error.
func (r *Response) Throw() error {
	if !r.OK() {
		return fmt.Errorf("http: request failed with status %d", r.StatusCode)
	}
	return nil
}
