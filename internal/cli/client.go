package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/hvpsu/internal/api"
	"github.com/nerrad567/hvpsu/internal/psu"
)

// defaultHTTPTimeout bounds a single request. Lazy connects on the analog
// driver can take several seconds.
const defaultHTTPTimeout = 30 * time.Second

// APIError is a non-2xx response from hvpsud.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("hvpsud: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("hvpsud: %s: %s", e.Code, e.Message)
}

// Relay is the body of both relay routes.
type Relay struct {
	On    bool   `json:"on"`
	State string `json:"state"`
}

// TeardownResult is the body of POST /teardown.
type TeardownResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Client talks to the hvpsud HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. token may be empty
// when the server runs without authentication.
func NewClient(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

// Info returns the service description served on /.
func (c *Client) Info(ctx context.Context) (*api.InfoResponse, error) {
	var out api.InfoResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns the aggregated status document.
func (c *Client) Status(ctx context.Context) (*psu.Status, error) {
	var out psu.Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connect connects identity, un-parking it after a teardown.
func (c *Client) Connect(ctx context.Context, identity string) error {
	return c.do(ctx, http.MethodPost, psuPath(identity, "connect"), nil, nil)
}

// SetVoltage sends a voltage setpoint. The bool reports hardware acceptance.
func (c *Client) SetVoltage(ctx context.Context, identity string, v float64) (bool, error) {
	return c.setpoint(ctx, identity, "set_voltage", v)
}

// SetCurrent sends a current setpoint. The bool reports hardware acceptance.
func (c *Client) SetCurrent(ctx context.Context, identity string, i float64) (bool, error) {
	return c.setpoint(ctx, identity, "set_current", i)
}

func (c *Client) setpoint(ctx context.Context, identity, op string, value float64) (bool, error) {
	var out okResponse
	if err := c.do(ctx, http.MethodPost, psuPath(identity, op), map[string]float64{"value": value}, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

// Read samples voltage, current and relay.
func (c *Client) Read(ctx context.Context, identity string) (*api.ReadResponse, error) {
	var out api.ReadResponse
	if err := c.do(ctx, http.MethodGet, psuPath(identity, "read"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Relay returns the cached relay state.
func (c *Client) Relay(ctx context.Context, identity string) (*Relay, error) {
	var out Relay
	if err := c.do(ctx, http.MethodGet, psuPath(identity, "relay"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetRelay drives the relay to on.
func (c *Client) SetRelay(ctx context.Context, identity string, on bool) (*Relay, error) {
	var out Relay
	if err := c.do(ctx, http.MethodPost, psuPath(identity, "relay"), map[string]bool{"state": on}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Teardown disconnects every PSU.
func (c *Client) Teardown(ctx context.Context) (*TeardownResult, error) {
	var out TeardownResult
	if err := c.do(ctx, http.MethodPost, "/teardown", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func psuPath(identity, op string) string {
	return "/" + url.PathEscape(identity) + "/" + op
}

// do sends body as JSON and decodes a 2xx response into out.
// Any other status is returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope api.Error
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr != nil || envelope.Message == "" {
			envelope.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: envelope.Code, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
