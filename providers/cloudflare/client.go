// Package cloudflare implements the dyndns provider interface for Cloudflare DNS.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"gitlab.bluewillows.net/root/dyndns/pkg/httputil"
	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// DefaultAPIEndpoint is the base URL for Cloudflare API v4.
const DefaultAPIEndpoint = "https://api.cloudflare.com/client/v4"

// apiError represents an error from the Cloudflare API.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// apiResponse is the standard Cloudflare API response wrapper.
type apiResponse struct {
	Success  bool            `json:"success"`
	Errors   []apiError      `json:"errors"`
	Messages []apiError      `json:"messages"`
	Result   json.RawMessage `json:"result"`
}

// zoneResult represents a zone from the Cloudflare API.
type zoneResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// dnsRecord represents a DNS record from the Cloudflare API.
type dnsRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
	ZoneID  string `json:"zone_id"`
}

// updateRecordRequest is the request body for patching a DNS record.
type updateRecordRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// Client is a Cloudflare DNS API client.
type Client struct {
	apiEndpoint string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPIEndpoint sets a custom API endpoint (useful for testing).
func WithAPIEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.apiEndpoint = endpoint
	}
}

// NewClient creates a new Cloudflare API client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		apiEndpoint: DefaultAPIEndpoint,
		token:       token,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httputil.NewClient(&httputil.ClientConfig{Logger: c.logger})
	}

	return c
}

// doRequest performs an HTTP request to the Cloudflare API.
// Any non-2xx status or unsuccessful envelope becomes a *provider.APIError
// carrying every code/message pair Cloudflare reported.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*apiResponse, error) {
	reqURL := c.apiEndpoint + path

	c.logger.Debug("making API request",
		slog.String("method", method),
		slog.String("path", path),
	)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var apiResp apiResponse
	parseErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &provider.APIError{Provider: ProviderType, Status: resp.StatusCode}
		if parseErr == nil {
			apiErr.Messages = messages(apiResp.Errors)
		}
		return nil, apiErr
	}

	if parseErr != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", parseErr)
	}

	if !apiResp.Success {
		return nil, &provider.APIError{
			Provider: ProviderType,
			Status:   resp.StatusCode,
			Messages: messages(apiResp.Errors),
		}
	}

	return &apiResp, nil
}

func messages(errs []apiError) []provider.APIMessage {
	out := make([]provider.APIMessage, 0, len(errs))
	for _, e := range errs {
		out = append(out, provider.APIMessage{Code: strconv.Itoa(e.Code), Message: e.Message})
	}
	return out
}

// ListZones returns the zones whose name is exactly name.
func (c *Client) ListZones(ctx context.Context, name string) ([]zoneResult, error) {
	params := url.Values{}
	params.Set("name", name)

	resp, err := c.doRequest(ctx, http.MethodGet, "/zones?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}

	var zones []zoneResult
	if err := json.Unmarshal(resp.Result, &zones); err != nil {
		return nil, fmt.Errorf("parsing zones response: %w", err)
	}

	c.logger.Debug("listed zones",
		slog.String("name", name),
		slog.Int("count", len(zones)),
	)

	return zones, nil
}

// FindRecords returns the records of recordType named name in the given zone.
func (c *Client) FindRecords(ctx context.Context, zoneID, recordType, name string) ([]dnsRecord, error) {
	params := url.Values{}
	params.Set("type", recordType)
	params.Set("name", name)

	path := fmt.Sprintf("/zones/%s/dns_records?%s", url.PathEscape(zoneID), params.Encode())
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("finding records: %w", err)
	}

	var records []dnsRecord
	if err := json.Unmarshal(resp.Result, &records); err != nil {
		return nil, fmt.Errorf("parsing records response: %w", err)
	}

	c.logger.Debug("found records",
		slog.String("zone_id", zoneID),
		slog.String("type", recordType),
		slog.String("name", name),
		slog.Int("count", len(records)),
	)

	return records, nil
}

// UpdateRecord patches an existing DNS record.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, body updateRecordRequest) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := fmt.Sprintf("/zones/%s/dns_records/%s", url.PathEscape(zoneID), url.PathEscape(recordID))
	if _, err := c.doRequest(ctx, http.MethodPatch, path, bytes.NewReader(bodyBytes)); err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	c.logger.Info("updated DNS record",
		slog.String("zone_id", zoneID),
		slog.String("record_id", recordID),
		slog.String("name", body.Name),
		slog.String("content", body.Content),
		slog.Int("ttl", body.TTL),
	)

	return nil
}
