package firefly

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"golang.org/x/sync/singleflight"
)

const (
	// APIPrefix is appended to the configured host
	APIPrefix = "/api/v1"
	// DefaultTimeout bounds each individual request
	DefaultTimeout = 10 * time.Second
	// PageSizeLimit is sent as limit on list endpoints to avoid pagination
	PageSizeLimit = 65535
	// maxBodySize caps how much of a response body is read
	maxBodySize = 32 << 20
)

// HTTPClient interface for dependency injection and testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client
type Options struct {
	// Host is the server base URL without the API prefix
	Host  string
	Token string
	// Range bounds range-scoped endpoints, nil leaves them unbounded
	Range *timerange.Range
	// VerifyCertificates enables TLS verification on the default transport
	VerifyCertificates bool
	Timeout            time.Duration
	HTTPClient         HTTPClient
	Logger             *internal.Logger
	// Now overrides the clock, used for the fiscal year start
	Now func() time.Time
}

// Client reads data from a Firefly III server. Responses are cached per
// request signature for the lifetime of the client, which the
// coordinator scopes to one poll cycle.
type Client struct {
	baseURL    string
	token      string
	rng        *timerange.Range
	timeout    time.Duration
	httpClient HTTPClient
	logger     *internal.Logger
	now        func() time.Time

	cache    *requestCache
	inflight singleflight.Group

	mu              sync.Mutex
	defaultCurrency *models.Currency
	fiscalYearStart string
	about           *models.About
}

// NewClient creates a new Firefly III client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = internal.GetLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(opts.VerifyCertificates)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var rng *timerange.Range
	if opts.Range != nil {
		r := *opts.Range
		rng = &r
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.Host, "/") + APIPrefix,
		token:      opts.Token,
		rng:        rng,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
		now:        now,
		cache:      newRequestCache(),
	}
}

// NewHTTPClient returns the default transport-backed client. Idle
// connections are not reused across requests.
func NewHTTPClient(verifyCertificates bool) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: !verifyCertificates},
			DisableKeepAlives: true,
		},
	}
}

// ForRange derives a client bound to rng sharing the transport but with
// an empty cache.
func (c *Client) ForRange(rng *timerange.Range) *Client {
	return NewClient(Options{
		Host:       strings.TrimSuffix(c.baseURL, APIPrefix),
		Token:      c.token,
		Range:      rng,
		Timeout:    c.timeout,
		HTTPClient: c.httpClient,
		Logger:     c.logger,
		Now:        c.now,
	})
}

// Range returns the bound range, if any.
func (c *Client) Range() (timerange.Range, bool) {
	if c.rng == nil {
		return timerange.Range{}, false
	}
	return *c.rng, true
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// CacheLen reports the number of cached responses.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

// rangeParams adds start/end of rng to params.
func rangeParams(params url.Values, rng *timerange.Range) url.Values {
	if params == nil {
		params = url.Values{}
	}
	if rng != nil {
		params.Set("start", rng.StartDate())
		params.Set("end", rng.EndDate())
	}
	return params
}

// get performs a cached GET and returns the JSON body. Concurrent calls
// with the same signature share one request. The shared request is not
// tied to any single caller's cancellation; each caller stops waiting
// when its own ctx is done.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	key := cacheKey(path, params)
	if body, ok := c.cache.Get(key); ok {
		c.logger.Debug(internal.ComponentFirefly, "Cache hit for %s", path)
		return body, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (interface{}, error) {
		if body, ok := c.cache.Get(key); ok {
			return body, nil
		}
		body, cacheable, err := c.do(shared, path, params)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.cache.Put(key, body)
		}
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// do issues one request. It returns the body when it is valid JSON and
// whether it may be cached.
func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, interfaces.NewClientError(interfaces.ErrorTypeInvalid, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug(internal.ComponentFirefly, "GET %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, classifyTransportError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, false, classifyTransportError(ctx, reqCtx, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, &interfaces.ClientError{
			Type:    interfaces.ErrorTypeAuth,
			Status:  resp.StatusCode,
			Message: "server rejected the access token",
			Err:     ErrAuthentication,
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, &interfaces.ClientError{
			Type:    interfaces.ErrorTypeNotFound,
			Status:  resp.StatusCode,
			Message: path,
			Err:     ErrNotFound,
		}
	}

	if !json.Valid(body) {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, false, &interfaces.ClientError{
				Type:    interfaces.ErrorTypeServer,
				Status:  resp.StatusCode,
				Message: "unexpected status",
				Err:     ErrServer,
			}
		}
		return nil, false, &interfaces.ClientError{
			Type:    interfaces.ErrorTypeInvalid,
			Status:  resp.StatusCode,
			Message: "response is not JSON",
			Err:     ErrMalformedResponse,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn(internal.ComponentFirefly, "Unexpected status %d for %s, using body as returned", resp.StatusCode, path)
		return body, false, nil
	}
	return body, true, nil
}

func classifyTransportError(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	var netErr net.Error
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return interfaces.NewClientError(interfaces.ErrorTypeTimeout, "request timed out", fmt.Errorf("%w: %v", ErrTimeout, err))
	}
	return interfaces.NewClientError(interfaces.ErrorTypeNetwork, "request failed", fmt.Errorf("%w: %v", ErrConnection, err))
}

// degrade swallows err after logging it and returns nil, except for
// authentication failures and cancellation which are returned.
func (c *Client) degrade(ctx context.Context, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuthentication) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Warn(internal.ComponentFirefly, "Failed to fetch %s: %v", what, err)
	return nil
}
