// Package remote authenticates against an external identity provider over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/park285/bonk-chess-server/internal/auth"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authenticateResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Error    string `json:"error,omitempty"`
}

// Client implements auth.Authenticator with POST {base}/authenticate.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 32},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ auth.Authenticator = (*Client)(nil)

// Authenticate maps 401/403 and success=false to auth.ErrInvalidCredentials and
// transport failures or 5xx after retries to auth.ErrUnavailable.
func (c *Client) Authenticate(ctx context.Context, username, password string) (auth.Identity, error) {
	var out authenticateResponse
	status, err := c.postJSON(ctx, "/authenticate", authenticateRequest{Username: username, Password: password}, &out)
	if err != nil {
		obslog.L().Warn("remote_auth_failed", zap.String("username", username), zap.Error(err))
		return auth.Identity{}, fmt.Errorf("%w: %v", auth.ErrUnavailable, err)
	}
	if status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden || !out.Success {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	if out.UserID == "" {
		return auth.Identity{}, fmt.Errorf("%w: response without user id", auth.ErrUnavailable)
	}
	name := out.Username
	if name == "" {
		name = username
	}
	return auth.Identity{UserID: out.UserID, Username: name}, nil
}

// postJSON returns the final status code. 2xx bodies and 401/403 bodies are
// decoded into out; 5xx is retried with backoff.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			switch {
			case status >= 200 && status < 300, status == fasthttp.StatusUnauthorized, status == fasthttp.StatusForbidden:
				if len(resp.Body()) > 0 {
					if err := json.Unmarshal(resp.Body(), out); err != nil && status < 300 {
						return status, fmt.Errorf("decode response: %w", err)
					}
				}
				return status, nil
			case !shouldRetryStatus(status):
				return status, fmt.Errorf("identity provider error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			default:
				lastErr = fmt.Errorf("identity provider error: status=%d", status)
			}
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return 0, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return 0, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
