// Package adminclient is the HTTP client for the gateway's administrative
// API (internal/admin), used by the gatewayctl CLI: a thin
// doRequest/parseErrorResponse pair wrapping net/http, since the CLI talks
// to a real running gateway rather than simulating one locally.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/simpligility/trino-gateway/internal/errors"
)

// Client is the HTTP client for a gateway's admin API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a Client for the admin API at endpoint (e.g. http://gw:8081).
func New(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Endpoint returns the configured admin endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Backend mirrors the admin API's backend JSON representation.
type Backend struct {
	Name         string `json:"name"`
	ProxyTo      string `json:"proxyTo"`
	ExternalURL  string `json:"externalUrl"`
	RoutingGroup string `json:"routingGroup"`
	Active       bool   `json:"active"`
	Reachable    bool   `json:"reachable"`
	QueueDepth   int    `json:"queueDepth"`
}

// ListBackends retrieves every configured backend and its health snapshot.
func (c *Client) ListBackends(ctx context.Context) ([]Backend, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/admin/backends", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var out []Backend
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("adminclient: failed to decode response: %w", err)
	}
	return out, nil
}

// GetBackend retrieves a single backend by name.
func (c *Client) GetBackend(ctx context.Context, name string) (*Backend, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/admin/backends/"+name, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var out Backend
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("adminclient: failed to decode response: %w", err)
	}
	return &out, nil
}

// UpsertBackendRequest is the body of a PUT /admin/backends/{name} request.
type UpsertBackendRequest struct {
	ProxyTo      string `json:"proxyTo"`
	ExternalURL  string `json:"externalUrl"`
	RoutingGroup string `json:"routingGroup"`
	Active       bool   `json:"active"`
	DeepProbe    bool   `json:"deepProbe"`
}

// UpsertBackend adds or replaces a backend definition.
func (c *Client) UpsertBackend(ctx context.Context, name string, req UpsertBackendRequest) error {
	body, _ := json.Marshal(req)
	resp, err := c.doRequest(ctx, http.MethodPut, "/admin/backends/"+name, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// DeleteBackend removes a backend by name.
func (c *Client) DeleteBackend(ctx context.Context, name string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/admin/backends/"+name, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// ReloadRules triggers a rules-file reload on the gateway.
func (c *Client) ReloadRules(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/admin/rules/reload", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.endpoint == "" {
		return nil, errors.NewGatewayUnavailable("", "no admin endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("adminclient: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewGatewayUnavailable(c.endpoint, err.Error())
	}
	return resp, nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("adminclient: gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("%s", errResp.Error)
}
