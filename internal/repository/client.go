package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Credentials supplies the bearer token for outbound calls and is told when
// the backend rejects it. The session manager implements it; the token is
// re-read from durable storage on every call.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Expire(ctx context.Context) error
}

// ClientConfig configures the backend client.
type ClientConfig struct {
	BaseURL    string        // e.g. http://localhost:8080/api
	Timeout    time.Duration // per request, default 10s
	MaxRPS     float64       // outbound throttle; 0 disables
	Burst      int
	HTTPClient *http.Client // optional, replaces the tuned default
	Logger     *slog.Logger
}

// Client is the single HTTP wrapper every repository goes through. It
// attaches the bearer token when one is stored, omits the header otherwise,
// and expires the session when the backend answers 401.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient validates the base URL and builds a Client. creds may be nil
// for anonymous use (tests, health probes).
func NewClient(cfg ClientConfig, creds Credentials) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("repository: invalid base url %q", cfg.BaseURL)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxConnsPerHost:     100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    hc,
		creds:   creds,
		log:     logger,
	}
	if cfg.MaxRPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}
	return c, nil
}

type requestIDKey struct{}

// WithRequestID returns a context whose outbound calls carry X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one request. path is relative to the base URL and may carry an
// already-encoded query string. body, when non-nil, is sent as JSON; out,
// when non-nil, receives the decoded JSON response.
//
// If ctx is cancelled while the call is in flight the response is dropped
// and ctx.Err() is returned, so a page that went away never acts on a stale
// result.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s %s: throttled: %v", ErrUnavailable, method, path, err)
		}
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := requestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	if c.creds != nil {
		tok, err := c.creds.Token(ctx)
		if err != nil {
			c.log.Warn("read session token", "err", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
		if err := c.creds.Expire(ctx); err != nil {
			c.log.Error("expire session after 401", "err", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    messageOf(b),
			Body:       string(b),
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: read %s %s: %w", ErrUnavailable, method, path, err)
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// messageOf pulls a human readable message out of the usual error bodies
// ({"message": ...} or {"error": ...}); plain text bodies are returned as is.
func messageOf(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		if len(b) < 256 && b[0] != '{' && b[0] != '[' {
			return string(b)
		}
		return ""
	}
	if m.Message != "" {
		return m.Message
	}
	return m.Error
}
