// Package httpclient is the JSON-over-HTTP plumbing shared by the SaaS API
// clients. Each Client owns its own rate limiter; there is no process-wide
// request clock.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryAfter    = time.Second
	defaultMaxRateRetry  = 5
	defaultResponseLimit = 32 << 20
)

// APIError is returned for any non-2xx response that is not retried.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API %d: %s", e.Service, e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status from an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Config configures a Client.
type Config struct {
	Service string // used in error messages, e.g. "Airtable"
	BaseURL string
	Header  http.Header

	// Limiter paces every attempt, including retries after a 429.
	// A nil limiter means unlimited.
	Limiter *rate.Limiter

	// MaxRateRetries bounds how many 429 responses are absorbed per request.
	MaxRateRetries int

	// ErrorMessage turns an error body into a human readable message.
	// Defaults to the trimmed body text.
	ErrorMessage func(body []byte) string

	HTTPClient *http.Client
}

// Client issues JSON requests against one API.
type Client struct {
	cfg   Config
	http  *http.Client
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.MaxRateRetries <= 0 {
		cfg.MaxRateRetries = defaultMaxRateRetry
	}
	if cfg.ErrorMessage == nil {
		cfg.ErrorMessage = plainMessage
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, sleep: sleepCtx}
}

// PerSecond returns a limiter allowing n requests per second with no burst,
// or nil (unlimited) when n is not positive.
func PerSecond(n int) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Second/time.Duration(n)), 1)
}

// Request describes one API call. Path is joined to the base URL unless it
// is already absolute.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// RawBody is sent as is with ContentType instead of JSON-encoding Body.
	RawBody     []byte
	ContentType string

	// Accept lists non-2xx statuses that are returned instead of failing,
	// such as 308 from a resumable upload.
	Accept []int
}

// Response is the status and headers of a completed call.
type Response struct {
	StatusCode int
	Header     http.Header
}

// Do performs req and decodes a JSON response into out when out is non-nil.
// Empty response bodies leave out untouched.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	_, err := c.Send(ctx, req, out)
	return err
}

// Send is Do that also reports the response status and headers.
func (c *Client) Send(ctx context.Context, req Request, out any) (Response, error) {
	payload, contentType := req.RawBody, req.ContentType
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode %s request: %w", c.cfg.Service, err)
		}
		payload, contentType = encoded, "application/json"
	}

	target := c.resolve(req.Path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.Wait(ctx); err != nil {
				return Response{}, err
			}
		}

		status, header, body, err := c.roundTrip(ctx, req, target, payload, contentType)
		if err != nil {
			return Response{}, fmt.Errorf("%s network error: %w", c.cfg.Service, err)
		}
		resp := Response{StatusCode: status, Header: header}

		if status == http.StatusTooManyRequests && attempt < c.cfg.MaxRateRetries {
			if err := c.sleep(ctx, retryAfter(header.Get("Retry-After"))); err != nil {
				return resp, err
			}
			continue
		}
		if slices.Contains(req.Accept, status) {
			return resp, nil
		}
		if status < 200 || status >= 300 {
			return resp, &APIError{Service: c.cfg.Service, StatusCode: status, Message: c.cfg.ErrorMessage(body)}
		}
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return resp, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", c.cfg.Service, err)
		}
		return resp, nil
	}
}

func (c *Client) roundTrip(ctx context.Context, req Request, target string, payload []byte, contentType string) (int, http.Header, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, vs := range c.cfg.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := ReadAllWithLimit(resp.Body, defaultResponseLimit)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, data, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.BaseURL + path
}

func retryAfter(value string) time.Duration {
	if value == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds * float64(time.Second))
}

func plainMessage(body []byte) string {
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "Unknown error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
