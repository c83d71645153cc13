// Package discord delivers listing notifications through a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/internal/httpclient"
	"github.com/teranos/jobpulse/internal/ratelimit"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sink"
	"github.com/teranos/jobpulse/sym"
)

// Webhook quotas: 5 requests per 2 seconds, 30 messages per minute.
const (
	burstRate        = rate.Limit(2.5)
	burstSize        = 5
	perMinuteLimit   = 30
	maxResponseBytes = 64 << 10
	defaultTimeout   = 15 * time.Second
)

// Client is a webhook-backed sink.Sink.
type Client struct {
	webhook *url.URL
	http    *httpclient.SaferClient
	burst   *rate.Limiter
	window  *ratelimit.Window
	logger  *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests point it at httptest servers).
func WithHTTPClient(c *httpclient.SaferClient) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(cl *Client) { cl.logger = logger.OrNop(l).Named("discord") }
}

// WithLimits replaces the burst limiter and per-minute window.
func WithLimits(burst *rate.Limiter, window *ratelimit.Window) Option {
	return func(cl *Client) {
		cl.burst = burst
		cl.window = window
	}
}

// NewClient creates a Client for webhookURL.
func NewClient(webhookURL string, opts ...Option) (*Client, error) {
	c := &Client{
		http:   httpclient.New(defaultTimeout, httpclient.Options{AllowedSchemes: []string{"https"}}),
		burst:  rate.NewLimiter(burstRate, burstSize),
		window: ratelimit.NewWindow(perMinuteLimit, time.Minute),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := c.http.ValidateURL(webhookURL)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid discord webhook URL"),
			"expected https://discord.com/api/webhooks/<id>/<token>")
	}
	c.webhook = u
	return c, nil
}

// Create implements sink.Sink: it executes the webhook with wait=true and
// returns the created message id.
func (c *Client) Create(ctx context.Context, payload sink.Payload) (string, error) {
	u := *c.webhook
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, http.MethodPost, u.String(), payload)
	if err != nil {
		return "", errors.Wrap(err, "create discord message")
	}

	var msg struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &msg); err != nil || msg.ID == "" {
		err = errors.Newf("discord response has no message id")
		return "", errors.WithDetail(err, string(body))
	}
	return msg.ID, nil
}

// Edit implements sink.Sink by patching the message with id handle.
func (c *Client) Edit(ctx context.Context, handle string, payload sink.Payload) error {
	if handle == "" {
		return errors.New("edit discord message: empty handle")
	}
	u := c.webhook.JoinPath("messages", handle)

	if _, err := c.do(ctx, http.MethodPatch, u.String(), payload); err != nil {
		return errors.Wrapf(err, "edit discord message %s", handle)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, payload sink.Payload) ([]byte, error) {
	if err := c.window.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for per-minute quota")
	}
	if err := c.burst.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for burst quota")
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithDetail(errors.Wrap(err, "send request"), string(payload))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	c.logger.Debugw("Webhook call",
		logger.FieldSymbol, sym.Sink,
		"method", method,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	if logger.ShouldLogPayloads(logger.Verbosity) {
		c.logger.Debugw("Webhook payload",
			logger.FieldPayload, string(payload),
			"response", string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Wrapf(errors.ErrSinkRejected, "discord returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		err = errors.WithDetail(err, "payload: "+string(payload))
		err = errors.WithDetail(err, "response: "+string(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			err = errors.WithHint(err, fmt.Sprintf("rate limited, retry after %s seconds; raise queue.interval_ms", resp.Header.Get("Retry-After")))
		}
		return nil, err
	}

	return body, nil
}

var _ sink.Sink = (*Client)(nil)
