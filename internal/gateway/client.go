// Package gateway is the client's only path to the backend REST API.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"resty.dev/v3"

	"github.com/johnrirwin/socialfeed/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// TokenSource yields the bearer token for the current session. An empty
// token is fine: the backend decides whether the call needs one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds gateway settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client wraps the backend API.
type Client struct {
	client *resty.Client
	tokens TokenSource
	logger *logging.Logger
}

// New creates a gateway client.
func New(cfg Config, tokens TokenSource, logger *logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{
		client: client,
		tokens: tokens,
		logger: logger,
	}

	client.AddResponseMiddleware(func(_ *resty.Client, res *resty.Response) error {
		path := res.Request.URL
		if u, err := url.Parse(res.Request.URL); err == nil {
			path = u.Path
		}
		c.logger.Debug("Backend request", logging.WithFields(map[string]interface{}{
			"method":   res.Request.Method,
			"path":     path,
			"status":   res.StatusCode(),
			"duration": res.Duration().String(),
		}))
		return nil
	})

	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	req := c.client.R().
		WithContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString())

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.logger.Debug("No session token available", logging.WithField("error", err.Error()))
		} else if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
	}
	return req
}

// call executes one request and decodes a successful body into out. A 2xx
// body that cannot be decoded leaves out nil instead of failing the call.
func (c *Client) call(ctx context.Context, endpoint, method, path string, build func(*resty.Request), out *json.RawMessage) error {
	req := c.r(ctx)
	if build != nil {
		build(req)
	}
	if out != nil {
		req.SetResult(out)
	}

	start := time.Now()
	res, err := req.Execute(method, path)

	status := "error"
	if res != nil && res.StatusCode() != 0 {
		status = strconv.Itoa(res.StatusCode())
	}
	requestsTotal.WithLabelValues(endpoint, status).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if res != nil && res.IsError() {
		return &RequestError{Method: method, Path: path, Status: res.StatusCode()}
	}
	if err != nil {
		if res != nil && res.IsSuccess() {
			malformedTotal.WithLabelValues(endpoint).Inc()
			c.logger.Debug("Discarding malformed response", logging.WithFields(map[string]interface{}{
				"endpoint": endpoint,
				"error":    err.Error(),
			}))
			if out != nil {
				*out = nil
			}
			return nil
		}
		return &RequestError{Method: method, Path: path, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, build func(*resty.Request)) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.call(ctx, endpoint, http.MethodGet, path, build, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, endpoint, path string, build func(*resty.Request)) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.call(ctx, endpoint, http.MethodPost, path, build, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func pathID(id string) string {
	return url.PathEscape(id)
}
