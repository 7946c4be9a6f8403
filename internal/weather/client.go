package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-page/internal/config"
)

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	// Message is the provider's own "message" field, if the body had one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("openweather: unexpected status %d", e.StatusCode)
}

// RequestDecorator mutates every outgoing request before it is sent.
type RequestDecorator func(req *http.Request)

// Client talks to the OpenWeatherMap REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	circuit    *gobreaker.CircuitBreaker
	decorators []RequestDecorator
}

// NewClient builds a client for cfg. A nil httpClient gets one with
// cfg.HTTPTimeout.
func NewClient(cfg config.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// Cancellation does not count as a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.OpenWeatherBaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst),
		circuit:    cb,
		decorators: []RequestDecorator{coordinates(cfg)},
	}
}

// Use appends a decorator; it runs after the ones already registered.
func (c *Client) Use(d RequestDecorator) {
	c.decorators = append(c.decorators, d)
}

// coordinates adds the fixed location, key and unit system to every request,
// keeping any query parameters the caller set.
func coordinates(cfg config.Config) RequestDecorator {
	lat := strconv.FormatFloat(cfg.Latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(cfg.Longitude, 'f', -1, 64)
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Set("lat", lat)
		q.Set("lon", lon)
		q.Set("appid", cfg.OpenWeatherAPIKey)
		q.Set("units", cfg.Units)
		req.URL.RawQuery = q.Encode()
	}
}

// Get fetches path (relative to the base URL, e.g. "/weather") and decodes
// the body. Cancellation of ctx is returned as an error wrapping
// context.Canceled. Failures are not retried.
func (c *Client) Get(ctx context.Context, path string) (Payload, error) {
	if c.httpClient == nil {
		return Payload{}, errNoHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Payload{}, err
	}
	req.Header.Set("Accept", "application/json")
	for _, d := range c.decorators {
		d(req)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return Payload{}, fmt.Errorf("rate limit wait canceled: %w", ctx.Err())
		}
		return Payload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, redactURLError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newAPIError(resp.StatusCode, body)
		}

		var p Payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decode openweather response: %w", err)
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Payload{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return Payload{}, err
	}

	p, ok := result.(Payload)
	if !ok {
		return Payload{}, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return p, nil
}

// redactURLError replaces the API key in a transport error's URL. The
// wrapped cause is kept, so errors.Is still sees context.Canceled.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: redactURL(uerr.URL), Err: uerr.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("DEBUG: openweather error body is not JSON (status %d)", status)
	}
	return &APIError{StatusCode: status, Message: envelope.Message}
}

// Endpoint returns the full URL the client would call for path, without the
// decorated query. Used in startup logs.
func (c *Client) Endpoint(path string) string {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return c.baseURL + path
	}
	return u.String()
}
