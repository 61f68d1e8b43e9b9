package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "prospectwatch-client/pkg/errors"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// CredentialSource supplies the bearer credential for outgoing requests.
// An empty string means no credential is currently held.
type CredentialSource interface {
	Credential() string
}

// Client is the single shared HTTP client for the ProspectWatch API. It
// attaches the bearer credential to every authenticated request, parses
// the API's error envelope into the shared taxonomy, and funnels 401
// responses into one global logout side effect.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *zap.Logger

	// 401 debounce guard: many concurrent requests can fail with 401 at
	// once when a session dies; the logout side effect must fire once per
	// burst, not once per request.
	onUnauthorized func(reason string)
	cooldown       time.Duration
	mu             sync.Mutex
	lastFired      time.Time
}

// NewClient creates the shared API client.
func NewClient(baseURL string, timeout time.Duration, creds CredentialSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		logger:     logger,
		cooldown:   2 * time.Second,
	}
}

// SetUnauthorizedHandler installs the global logout hook fired on 401
// responses, at most once per cooldown window.
func (c *Client) SetUnauthorizedHandler(fn func(reason string), cooldown time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
	if cooldown > 0 {
		c.cooldown = cooldown
	}
}

// Option adjusts a single request.
type Option func(*requestOptions)

type requestOptions struct {
	auth bool
}

// WithoutAuth marks a request as anonymous: no Authorization header is
// attached even when a credential is held.
func WithoutAuth() Option {
	return func(o *requestOptions) {
		o.auth = false
	}
}

// Do issues a JSON request against the API. body is marshalled when
// non-nil; the response body is unmarshalled into out when non-nil. Every
// returned error is an *errors.APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...Option) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewUnknownError("failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.send(ctx, method, path, "application/json", reader, out, opts...)
}

// PostForm issues a form-urlencoded POST. The login endpoint is the only
// consumer: the API speaks OAuth2 password grant there, JSON everywhere
// else.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any, opts ...Option) error {
	reader := strings.NewReader(form.Encode())
	return c.send(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", reader, out, opts...)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out any, opts ...Option) error {
	options := requestOptions{auth: true}
	for _, opt := range opts {
		opt(&options)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.NewUnknownError("failed to build request", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if options.auth {
		if cred := c.creds.Credential(); cred != "" {
			req.Header.Set("Authorization", "Bearer "+cred)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response reached us at all.
		c.logger.Debug("request transport failure",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.NewNetworkError(err)
	}

	if resp.StatusCode >= 400 {
		return c.handleErrorStatus(method, path, resp.StatusCode, data, options.auth)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.NewUnknownError("malformed response from server", err)
		}
	}

	return nil
}

func (c *Client) handleErrorStatus(method, path string, status int, body []byte, authed bool) error {
	apiErr := apperrors.FromStatus(status, extractDetail(body))

	switch status {
	case http.StatusUnauthorized:
		// A 401 on an anonymous request (a failed login attempt) says
		// nothing about the held session and must not tear it down.
		if authed {
			c.notifyUnauthorized()
		}
	case http.StatusForbidden:
		// Forbidden means the session is fine but this resource is not
		// ours; it must not tear the session down.
		c.logger.Warn("access denied",
			zap.String("method", method),
			zap.String("path", path),
		)
	default:
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}

	return apiErr
}

// notifyUnauthorized fires the logout hook unless it already fired within
// the cooldown window.
func (c *Client) notifyUnauthorized() {
	c.mu.Lock()
	fn := c.onUnauthorized
	now := time.Now()
	debounced := now.Sub(c.lastFired) < c.cooldown
	if fn != nil && !debounced {
		// The window only opens when a handler actually runs; a 401 seen
		// before installation must not eat the first real firing.
		c.lastFired = now
	}
	c.mu.Unlock()

	if fn == nil || debounced {
		return
	}
	fn("unauthorized")
}

// extractDetail pulls the human-readable text out of the API's error
// envelope: a JSON body with a detail, message or error field. Absence of
// all three yields empty, letting the status table take over.
func extractDetail(body []byte) string {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	for _, field := range []string{"detail", "message", "error"} {
		if text, ok := envelope[field].(string); ok && text != "" {
			return text
		}
	}
	return ""
}
