package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rajasatyajit/EcoScan/internal/analytics"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/internal/service"
)

// Client talks to an EcoScan server over its v1 HTTP API
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{BaseURL: baseURL, HTTP: http.DefaultClient}
}

// APIError is a non-2xx response decoded from the server's error envelope
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("ecoscan: %d %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("ecoscan: %d %s", e.StatusCode, e.Message)
}

// HistoryParams filters a history listing. Zero values are omitted.
type HistoryParams struct {
	ProductIDs []string
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

func (p HistoryParams) values() url.Values {
	q := url.Values{}
	for _, id := range p.ProductIDs {
		q.Add("product", id)
	}
	if !p.Since.IsZero() {
		q.Set("since", p.Since.Format(time.RFC3339))
	}
	if !p.Until.IsZero() {
		q.Set("until", p.Until.Format(time.RFC3339))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}

// Product resolves id without recording it
func (c *Client) Product(ctx context.Context, id string) (*service.ProductView, error) {
	var out service.ProductView
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Alternatives lists greener products for id
func (c *Client) Alternatives(ctx context.Context, id string) ([]models.Product, error) {
	var out struct {
		Data []models.Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id)+"/alternatives", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Scan resolves id and records it in the history
func (c *Client) Scan(ctx context.Context, id string) (*service.ScanResult, error) {
	var out service.ScanResult
	if err := c.do(ctx, http.MethodPost, "/v1/scans", map[string]string{"product_id": id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists recorded scans, most recent first
func (c *Client) History(ctx context.Context, p HistoryParams) ([]models.ScanEvent, error) {
	path := "/v1/history"
	if q := p.values().Encode(); q != "" {
		path += "?" + q
	}
	var out struct {
		Data []models.ScanEvent `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Stats returns points, streak, daily goal and the 7-day trend
func (c *Client) Stats(ctx context.Context) (*analytics.Summary, error) {
	var out analytics.Summary
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearHistory deletes every event and resets points
func (c *Client) ClearHistory(ctx context.Context) (*service.Mutation, error) {
	var out service.Mutation
	if err := c.do(ctx, http.MethodDelete, "/v1/history", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error     string `json:"error"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		msg := envelope.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, RequestID: envelope.RequestID}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
