// Package backend holds the REST clients for the marketplace backend.
// Every call site converts transport and body-level failures into a
// classified domain.Failure; nothing here panics or throws past the
// caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kukuhub/storefront/internal/domain"
)

// Client talks to the marketplace backend. One instance is shared by
// the order and payment paths; the payment timeout is longer because
// an STK push keeps the request open while the gateway works.
type Client struct {
	baseURL        string
	http           *http.Client
	paymentTimeout time.Duration
	logger         *slog.Logger
}

type Option func(*Client)

func WithPaymentTimeout(d time.Duration) Option {
	return func(c *Client) { c.paymentTimeout = d }
}

func New(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:        baseURL,
		http:           httpClient,
		paymentTimeout: 30 * time.Second,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doJSON sends a JSON request and decodes the JSON response body into
// out regardless of status code; the backend reports failures in the
// body, not just the status line. Returns a classified Failure on
// transport errors.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.NewFailure(domain.FailureNetwork,
				fmt.Sprintf("unreadable response from backend (status %d)", resp.StatusCode))
		}
	}

	return nil
}

// classifyTransport maps a transport-level error to a timeout or a
// generic connectivity failure. Timeouts are not retried anywhere;
// the user re-triggers.
func classifyTransport(err error) *domain.Failure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewFailure(domain.FailureTimeout,
			"The request timed out. Please check your connection and try again.")
	}
	return domain.NewFailure(domain.FailureNetwork,
		"Could not reach the server. Please check your connection and try again.")
}
