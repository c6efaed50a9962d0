package ordersapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultHTTPTimeout sets the maximum duration of a single request.
const DefaultHTTPTimeout = 15 * time.Second

// OrderInfo is the auxiliary last-order lookup used for the "customer
// activity" hint next to a review. Read-only; it never feeds filtering.
type OrderInfo struct {
	ID          string    `json:"id"`
	CreatedDate time.Time `json:"createdDate"`
	Status      string    `json:"status"`
}

type orderResp struct {
	Data      OrderInfo `json:"data"`
	Error     bool      `json:"error"`
	ErrorText string    `json:"errorText"`
}

// Client is a thin wrapper over the order-statistics API. It uses its own
// credential, separate from the feedbacks token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *zap.SugaredLogger
}

// Option mutates the client during construction.
type Option func(*Client)

// WithLogger allows injecting custom zap logger. If nil, a no-op logger will be used.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient overrides the default http.Client (mainly for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs Client for the given base URL and token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		log:        zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// LastOrder fetches the most recent order with the given ID.
func (c *Client) LastOrder(ctx context.Context, orderID string) (OrderInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/orders/"+orderID, nil)
	if err != nil {
		return OrderInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return OrderInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return OrderInfo{}, fmt.Errorf("orders api http %d: %s", resp.StatusCode, string(b))
	}

	var out orderResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return OrderInfo{}, err
	}
	if out.Error {
		return OrderInfo{}, fmt.Errorf("orders api error: %s", out.ErrorText)
	}
	return out.Data, nil
}
