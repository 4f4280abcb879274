// Package fetcher provides ready-made swr.Fetcher implementations for
// JSON-over-HTTP data sources, built on a shared resty client.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/arbdash/revalid/swr"
)

// Client wraps a resty client preconfigured for polling APIs.
type Client struct {
	rc *resty.Client
}

// New builds a client for host. A non-positive timeout defaults to 30s.
// Proxy configuration is picked up from the environment (HTTP_PROXY,
// HTTPS_PROXY) by resty itself.
func New(host string, timeout time.Duration) *Client {
	host = strings.TrimSuffix(host, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

// NewWithClient wraps an existing resty client. Useful when the caller
// needs custom transport, auth middleware, or resty-level retries.
// Note: resty retries and the engine's retry policy stack; keep one of
// the two at zero.
func NewWithClient(rc *resty.Client) *Client {
	return &Client{rc: rc}
}

// StatusError reports a non-2xx response. The engine treats it like any
// other fetch failure; callers that want to classify (e.g. skip retries
// on 4xx in their own wrapper) can errors.As for it.
type StatusError struct {
	Code int
	Key  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: %s returned status %d", e.Key, e.Code)
}

// JSON returns a fetcher that treats the resource key as a request path
// relative to the client's base URL and decodes the JSON response body
// into V.
func JSON[V any](c *Client) swr.Fetcher[string, V] {
	return func(ctx context.Context, key string) (V, error) {
		var out V
		resp, err := c.rc.R().
			SetContext(ctx).
			SetResult(&out).
			Get(key)
		if err != nil {
			var zero V
			return zero, errors.Wrapf(err, "fetch %s", key)
		}
		if resp.IsError() {
			var zero V
			return zero, &StatusError{Code: resp.StatusCode(), Key: key}
		}
		return out, nil
	}
}

// JSONWithQuery is JSON with fixed query parameters appended to every
// request, for endpoints that multiplex resources behind one path.
func JSONWithQuery[V any](c *Client, params map[string]string) swr.Fetcher[string, V] {
	return func(ctx context.Context, key string) (V, error) {
		var out V
		resp, err := c.rc.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&out).
			Get(key)
		if err != nil {
			var zero V
			return zero, errors.Wrapf(err, "fetch %s", key)
		}
		if resp.IsError() {
			var zero V
			return zero, &StatusError{Code: resp.StatusCode(), Key: key}
		}
		return out, nil
	}
}
