package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TvogInc/ConnectHub/internal/util"
)

// Client calls the hosted store's REST API. It owns no business logic:
// every method is a typed request/response wrapper that either returns
// parsed rows or an *APIError carrying the store's code and message.
type Client struct {
	baseURL    string
	apiKey     string
	token      func() string
	httpClient *http.Client
}

// APIError represents an error response from the hosted store.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether the store signalled "no row" for a
// single-row read. The store uses this code rather than a 404.
func (e *APIError) IsNotFound() bool {
	return e.Code == "PGRST116" || e.Status == http.StatusNotAcceptable
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource supplies the session bearer token per request.
// When the source returns "", requests are sent with the API key only.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient constructs a store client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		token:      func() string { return "" },
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, table string, query url.Values, single bool, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, table, query, nil)
	if err != nil {
		return err
	}
	if single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	return c.do(req, out)
}

func (c *Client) insert(ctx context.Context, table string, body any, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, table, query, body)
	if err != nil {
		return err
	}
	if out != nil {
		req.Header.Set("Prefer", "return=representation")
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	} else {
		req.Header.Set("Prefer", "return=minimal")
	}
	return c.do(req, out)
}

func (c *Client) update(ctx context.Context, table string, query url.Values, body any) error {
	req, err := c.newRequest(ctx, http.MethodPatch, table, query, body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	return c.do(req, nil)
}

func (c *Client) remove(ctx context.Context, table string, query url.Values) error {
	req, err := c.newRequest(ctx, http.MethodDelete, table, query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, table string, query url.Values, body any) (*http.Request, error) {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)
	bearer := c.token()
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-Request-Id", util.NewID())
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

// notFound reports whether err is the store's "no row" condition.
func notFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.IsNotFound()
}
