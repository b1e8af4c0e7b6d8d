package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/callwave/callwave/pkg/domain"
)

// SessionStore is where the client reads and persists credentials.
// internal/session.Manager is the production implementation.
type SessionStore interface {
	Tokens(ctx context.Context) (domain.Tokens, error)
	SaveTokens(ctx context.Context, t domain.Tokens) error
	SignIn(ctx context.Context, t domain.Tokens, u *domain.User) error
	SaveUser(ctx context.Context, u *domain.User) error
	Clear(ctx context.Context) error
}

// Client is the Callwave API client.
type Client struct {
	baseURL    string
	store      SessionStore
	httpClient *http.Client
	log        *zap.Logger
	leeway     time.Duration
	tokenTTL   time.Duration
	now        func() time.Time

	refreshGroup singleflight.Group

	mu        sync.Mutex
	onExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithLeeway refreshes tokens this long before their recorded expiry.
func WithLeeway(d time.Duration) Option {
	return func(c *Client) { c.leeway = d }
}

// WithTokenTTL is the lifetime assumed when the server reports no expiry.
func WithTokenTTL(d time.Duration) Option {
	return func(c *Client) { c.tokenTTL = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a new API client. baseURL is the server root, without /api.
func New(baseURL string, store SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:      zap.NewNop(),
		tokenTTL: 15 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnSessionExpired registers fn to run after a failed refresh has cleared
// the session. It replaces any earlier hook.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// AccessToken returns a usable access token, refreshing it first when the
// stored expiry has passed. It returns "" when nobody is signed in.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	tok, err := c.store.Tokens(ctx)
	if err != nil {
		return "", fmt.Errorf("read tokens: %w", err)
	}
	if tok.Empty() {
		return "", nil
	}
	if tok.Expired(c.now(), c.leeway) {
		return c.refresh(ctx, tok.AccessToken)
	}
	return tok.AccessToken, nil
}

// payload is a request body kept in memory so it can be sent twice.
type payload struct {
	contentType string
	data        []byte
}

func jsonPayload(body any) (*payload, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return &payload{contentType: "application/json", data: data}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	p, err := jsonPayload(body)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, p, out, true)
}

// anonymous sends a request without credentials and without refresh handling.
func (c *Client) anonymous(ctx context.Context, method, path string, body any, out any) error {
	p, err := jsonPayload(body)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, p, out, false)
}

// send performs the request. Authenticated requests that come back 401 are
// retried once after a refresh; a 401 on the retry is returned as is.
func (c *Client) send(ctx context.Context, method, path string, p *payload, out any, auth bool) error {
	var token string
	if auth {
		var err error
		if token, err = c.AccessToken(ctx); err != nil {
			return err
		}
	}

	resp, err := c.roundTrip(ctx, method, path, p, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && auth && token != "" {
		resp.Body.Close() //nolint:errcheck // best-effort close
		if token, err = c.refresh(ctx, token); err != nil {
			return err
		}
		if resp, err = c.roundTrip(ctx, method, path, p, token); err != nil {
			return err
		}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, p *payload, token string) (*http.Response, error) {
	var reqBody io.Reader
	if p != nil {
		reqBody = bytes.NewReader(p.data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if p != nil {
		req.Header.Set("Content-Type", p.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("do request: %w", err)
	}
	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
	)
	return resp, nil
}
