package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/quota-watch/pkg/headerprofile"
	"github.com/samvad-hq/quota-watch/pkg/httpclient"
)

const (
	quotaPath     = "/api/user/self"
	usageStatPath = "/api/log/self/stat"

	// DefaultTimeout bounds a single request unless overridden.
	DefaultTimeout = 30 * time.Second
)

// AuthContext is the browser session being replayed.
type AuthContext struct {
	BaseURL string
	Cookie  string
	UserID  string
}

// TimeRange is a usage window in Unix seconds. Start is not required to
// precede End.
type TimeRange struct {
	Start int64
	End   int64
}

// Fetcher is the pair of queries exposed to hosts.
type Fetcher interface {
	FetchQuota(ctx context.Context, auth AuthContext) (string, error)
	FetchUsageStat(ctx context.Context, auth AuthContext, window TimeRange) (string, error)
}

// Client issues quota and usage-stat queries. It holds only immutable
// configuration; every call builds its own headers and HTTP client.
type Client struct {
	profile headerprofile.Profile
	timeout time.Duration
	newHTTP func(timeout time.Duration) httpclient.Client
	log     Logger
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithProfile replaces the browser profile used to shape requests.
func WithProfile(p headerprofile.Profile) Option {
	return func(c *Client) { c.profile = p }
}

// WithTimeout bounds each request. Zero disables the client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient swaps the transport factory, mainly for tests.
func WithHTTPClient(fn func(timeout time.Duration) httpclient.Client) Option {
	return func(c *Client) {
		if fn != nil {
			c.newHTTP = fn
		}
	}
}

// WithLogger attaches a logger. Cookies are never logged.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a Client using the default profile and timeout unless overridden.
func New(opts ...Option) *Client {
	c := &Client{
		profile: headerprofile.Default(),
		timeout: DefaultTimeout,
		newHTTP: func(timeout time.Duration) httpclient.Client { return httpclient.NewRestyClient(timeout) },
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile returns the browser profile in use.
func (c *Client) Profile() headerprofile.Profile { return c.profile }

// QuotaURL returns the account endpoint for baseURL.
func QuotaURL(baseURL string) string {
	return headerprofile.TrimBaseURL(baseURL) + quotaPath
}

// UsageStatURL returns the usage-stat endpoint for baseURL. The query string is
// written out literally: parameter order and the empty parameters are part of
// what the console sends.
func UsageStatURL(baseURL string, window TimeRange) string {
	return fmt.Sprintf(
		"%s%s?type=2&token_name=&model_name=&start_timestamp=%d&end_timestamp=%d&group=",
		headerprofile.TrimBaseURL(baseURL), usageStatPath, window.Start, window.End,
	)
}

// FetchQuota returns the raw body of the account record.
func (c *Client) FetchQuota(ctx context.Context, auth AuthContext) (string, error) {
	headers, err := c.headers(auth)
	if err != nil {
		return "", err
	}
	return c.get(ctx, QuotaURL(auth.BaseURL), headers)
}

// FetchUsageStat returns the raw body of the usage aggregate for window.
func (c *Client) FetchUsageStat(ctx context.Context, auth AuthContext, window TimeRange) (string, error) {
	headers, err := c.headers(auth)
	if err != nil {
		return "", err
	}
	return c.get(ctx, UsageStatURL(auth.BaseURL, window), headers)
}

func (c *Client) headers(auth AuthContext) (headerprofile.Headers, error) {
	headers, err := c.profile.Build(auth.UserID, auth.Cookie, auth.BaseURL)
	if err != nil {
		gerr := &Error{Kind: KindValidation, Err: err}
		var verr *headerprofile.ValidationError
		if errors.As(err, &verr) {
			gerr.Field = verr.Field
		}
		return nil, gerr
	}
	return headers, nil
}

func (c *Client) get(ctx context.Context, target string, headers headerprofile.Headers) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	resp, err := c.newHTTP(c.timeout).Get(ctx, target, headers)
	if err != nil {
		var bre *httpclient.BodyReadError
		if errors.As(err, &bre) {
			err = &Error{Kind: KindBodyRead, StatusCode: bre.StatusCode, Err: bre.Err}
		} else {
			err = &Error{Kind: KindTransport, Err: err}
		}
		c.log.WarnObj("gateway request failed", "gateway_error", map[string]any{
			"target":     target,
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return "", err
	}

	body := string(resp.Body())
	code := resp.StatusCode()
	c.log.DebugObj("gateway request completed", "gateway_response", map[string]any{
		"target":     target,
		"status":     code,
		"bytes":      len(body),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if code < 200 || code > 299 {
		return "", &Error{Kind: KindHTTPStatus, StatusCode: code, Body: body}
	}
	return body, nil
}
