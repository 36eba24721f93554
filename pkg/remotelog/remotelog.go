// Package remotelog ships log events to a remote logging endpoint.
//
// Delivery is best-effort: Log never blocks the caller, events are dropped when
// the queue is full, and send failures are only reported to the local logger.
package remotelog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	StackBackend  = "backend"
	StackFrontend = "frontend"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

const (
	PackageHandler    = "handler"
	PackageMiddleware = "middleware"
	PackageService    = "service"
	PackageRepository = "repository"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultQueueSize = 256
	flushTimeout     = 5 * time.Second
)

// Event is the payload accepted by the logging endpoint.
type Event struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

type Option func(*Client)

// WithToken sets the bearer token sent with every event.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout bounds a single delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithQueueSize sets how many events may wait for delivery before new ones are dropped.
func WithQueueSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queue = make(chan Event, n)
		}
	}
}

// WithLogger sets the local logger used to mirror events and report delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client used for delivery.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client queues events and delivers them from a single background loop started with Run.
// A Client with an empty endpoint only mirrors events locally.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	queue      chan Event
	dropped    atomic.Int64
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:      make(chan Event, defaultQueueSize),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Enabled reports whether events are delivered remotely.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

// Dropped returns the number of events discarded because the queue was full.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// Log enqueues an event for delivery. It never blocks.
func (c *Client) Log(stack, level, pkg, message string) {
	c.logger.Debug(message,
		slog.String("stack", stack),
		slog.String("level", level),
		slog.String("package", pkg),
	)

	if !c.Enabled() {
		return
	}

	select {
	case c.queue <- Event{Stack: stack, Level: level, Package: pkg, Message: message}:
	default:
		c.dropped.Add(1)
	}
}

// Run delivers queued events until ctx is done, then flushes what is left.
// It always returns nil; delivery errors never escape the client.
func (c *Client) Run(ctx context.Context) error {
	if !c.Enabled() {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			c.flush()
			return nil
		case ev := <-c.queue:
			c.deliver(context.WithoutCancel(ctx), ev)
		}
	}
}

func (c *Client) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for {
		select {
		case ev := <-c.queue:
			c.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (c *Client) deliver(ctx context.Context, ev Event) {
	if err := c.send(ctx, ev); err != nil {
		c.logger.Debug("remote log delivery failed", slog.Any("err", err))
	}
}

func (c *Client) send(ctx context.Context, ev Event) error {
	const op = "remotelog.Client.send"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: failed to encode event: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to send event: %w", op, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status code: %d", op, resp.StatusCode)
	}

	return nil
}
