package registry

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"storewatch/pkg/config"
	"storewatch/pkg/errors"
)

// Response is the minimal view of an HTTP response the scraping core needs.
// Any non-success status or absent response is treated as an item failure by
// the orchestrator, nothing more.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Success reports whether the response carries a usable payload.
func (r *Response) Success() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is a request-capable handle with its own retry/backoff. Discovery
// and extraction functions receive one per retailer and must not share it
// across retailers.
type Client interface {
	Get(ctx context.Context, url string) (*Response, error)
	Close() error
}

// httpClient is the default Client, built on resty with retry driven by the
// shared HTTP configuration.
type httpClient struct {
	resty *resty.Client
}

// NewHTTPClient builds a Client from the HTTP section of the configuration.
func NewHTTPClient(cfg config.HTTPConfig) Client {
	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelay).
		SetRetryMaxWaitTime(cfg.RetryDelay * 8).
		SetHeader("User-Agent", cfg.UserAgent).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return errors.IsRetryableStatusCode(resp.StatusCode())
		})
	return &httpClient{resty: rc}
}

func (c *httpClient) Get(ctx context.Context, url string) (*Response, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, "request failed", err)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, nil
}

func (c *httpClient) Close() error {
	c.resty.GetClient().CloseIdleConnections()
	return nil
}
