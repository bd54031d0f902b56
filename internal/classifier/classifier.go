// Package classifier is the HTTP client for the paper classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// Request is the body of POST /classify.
type Request struct {
	Abstract string `json:"abstract"`
}

// Response is the classification of one abstract. Categories may arrive as an
// array or as a comma-separated string; both decode to the normalized form.
type Response struct {
	PrimaryCategory     string            `json:"primary_category"`
	ResearchMethodology string            `json:"research_methodology"`
	Categories          record.Categories `json:"categories"`
	Confidence          *Confidence       `json:"confidence,omitempty"`
}

type Confidence struct {
	PrimaryCategory     float64            `json:"primary_category"`
	ResearchMethodology float64            `json:"research_methodology"`
	Categories          map[string]float64 `json:"categories,omitempty"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// StatusError is returned for any non-2xx reply.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classifier API %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Classify(ctx context.Context, abstract string) (Response, error) {
	body, err := json.Marshal(Request{Abstract: abstract})
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("classifier API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Response{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decoding classifier response: %w", err)
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("classifier API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Health{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decoding health response: %w", err)
	}
	return h, nil
}
