package wbapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultHTTPTimeout sets the maximum duration of a single request.
const DefaultHTTPTimeout = 15 * time.Second

// MaxTake is the upstream limit on a single page fetch.
const MaxTake = 5000

// Client is a thin wrapper over WB Feedbacks API.
// It handles: auth header, base URL, rate limiting and JSON decoding.
// No retries here — the dashboard surfaces failures and lets the user
// re-invoke the action. All public methods are safe for concurrent use;
// limiter serialises if needed.
//
// Example:
//
//	cli := wbapi.New(token,
//	    wbapi.WithRateLimit(3, 6),
//	    wbapi.WithLogger(log),
//	)
//	fbs, err := cli.FetchPage(ctx, false, 100, 0)
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	token      string
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
}

// Option mutates the client during construction.
type Option func(*Client)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err == nil {
			c.baseURL = u
		}
	}
}

// WithRateLimit sets the per-second rate and burst size.
// If rps <=0, limiter is disabled.
func WithRateLimit(rps, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

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

// New constructs Client with mandatory token and optional modifiers.
func New(token string, opts ...Option) *Client {
	base, _ := url.Parse("https://feedbacks-api.wildberries.ru")
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    base,
		token:      token,
		limiter:    rate.NewLimiter(rate.Inf, 0), // disabled limiter by default
		log:        zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchPage retrieves one page of feedbacks ordered by date desc.
// answered selects the tab: answered reviews or ones still waiting for a
// reply. take must be in 1..MaxTake, skip >=0. A page shorter than take is
// the only exhaustion signal the API gives.
func (c *Client) FetchPage(ctx context.Context, answered bool, take, skip int) ([]Feedback, error) {
	if take <= 0 || take > MaxTake {
		return nil, fmt.Errorf("wbapi: take %d out of range 1..%d", take, MaxTake)
	}
	if skip < 0 {
		return nil, fmt.Errorf("wbapi: negative skip %d", skip)
	}

	values := url.Values{}
	values.Set("isAnswered", strconv.FormatBool(answered))
	values.Set("take", strconv.Itoa(take))
	values.Set("skip", strconv.Itoa(skip))
	values.Set("order", "dateDesc")

	endpoint := c.resolve("/api/v1/feedbacks") + "?" + values.Encode()
	var resp feedbacksListResp
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("wb api error: %s", resp.ErrorText)
	}
	c.log.Debugw("fetched feedbacks page", "answered", answered, "take", take, "skip", skip, "got", len(resp.Data.Feedbacks))
	return resp.Data.Feedbacks, nil
}

// Answer posts a reply to a feedback ID. The marketplace transitions the
// feedback to "answered"; a second call for the same ID fails server-side.
func (c *Client) Answer(ctx context.Context, id, text string) error {
	body := answerRequest{ID: id, Text: text}
	var generic genericResponse
	if err := c.post(ctx, "/api/v1/feedbacks/answer", body, &generic); err != nil {
		return err
	}
	if generic.Error {
		return fmt.Errorf("wb api error: %s", generic.ErrorText)
	}
	return nil
}

// Stats fetches the aggregate unanswered count and average valuation.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	endpoint := c.resolve("/api/v1/feedbacks/count-unanswered")
	var resp statsResp
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return Stats{}, err
	}
	if resp.Error {
		return Stats{}, fmt.Errorf("wb api error: %s", resp.ErrorText)
	}
	return resp.Data, nil
}

// --- internal helpers ---

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.addAuthHeader(req)
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out interface{}) error {
	reqURL := c.resolve(path)
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if err := c.wait(req.Context()); err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wb api http %d: %s", resp.StatusCode, string(b))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addAuthHeader(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func (c *Client) resolve(p string) string {
	u := *c.baseURL // copy
	u.Path = path.Join(u.Path, p)
	return u.String()
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil || c.limiter.Limit() == rate.Inf {
		return nil
	}
	return c.limiter.Wait(ctx)
}
