// Package api is the HTTP client of the estatedesk server. It maps error
// responses back to the sentinels in internal/errs.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/errs"
)

// TokenSource yields the bearer token of the active session, or "".
type TokenSource interface {
	Token() string
}

// Error is a non-2xx response. It unwraps to the matching sentinel.
type Error struct {
	Status      int
	Message     string
	MFARequired bool
	sentinel    error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.sentinel }

// Client talks to the /api/v1 surface.
type Client struct {
	base   *url.URL
	http   *http.Client
	Tokens TokenSource
	log    *zap.Logger
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New parses baseURL (e.g. http://localhost:8080) and returns a client.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url: unsupported scheme %q", u.Scheme)
	}
	c := &Client{base: u, http: &http.Client{Timeout: timeout}, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/api/v1" + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// call performs one request. token overrides the TokenSource when not empty.
func (c *Client) call(ctx context.Context, method, path string, q url.Values, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token == "" && c.Tokens != nil {
		token = c.Tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error       string `json:"error"`
		MFARequired bool   `json:"mfa_required"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	e := &Error{Status: resp.StatusCode, Message: body.Error, MFARequired: body.MFARequired}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	e.sentinel = sentinelFor(resp.StatusCode, body.Error, body.MFARequired)
	return e
}

// sentinelFor inverts the server's status mapping. 401 bodies carry the exact
// sentinel text so admin and code failures keep their identity.
func sentinelFor(status int, msg string, mfa bool) error {
	switch status {
	case http.StatusBadRequest:
		return errs.ErrValidation
	case http.StatusUnauthorized:
		switch {
		case mfa:
			return errs.ErrMFARequired
		case msg == errs.ErrAdminUnknown.Error():
			return errs.ErrAdminUnknown
		case msg == errs.ErrAdminPasswordMismatch.Error():
			return errs.ErrAdminPasswordMismatch
		case strings.HasPrefix(msg, errs.ErrInvalidCode.Error()):
			return errs.ErrInvalidCode
		default:
			return errs.ErrUnauthorized
		}
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusConflict:
		switch {
		case strings.Contains(msg, errs.ErrInvalidTransition.Error()):
			return errs.ErrInvalidTransition
		case strings.Contains(msg, errs.ErrAlreadyExists.Error()):
			return errs.ErrAlreadyExists
		default:
			return errs.ErrVersionConflict
		}
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	case http.StatusNotImplemented:
		return errs.ErrUnsupported
	default:
		return errors.New("remote: " + http.StatusText(status))
	}
}
