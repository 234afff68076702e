// Package validator adapts the external mermaid syntax-checking service.
// The checker owns the grammar; this package only carries text to it and
// reports the verdict. Called exactly once per completed candidate, strictly
// before any persistence.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Result is the verdict for one candidate.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Validator is the syntax-checking contract consumed by the generation pipeline.
type Validator interface {
	Validate(ctx context.Context, text, diagramType string) (Result, error)
}

// Func adapts a plain function to the Validator interface (used in tests).
type Func func(ctx context.Context, text, diagramType string) (Result, error)

// Validate calls f.
func (f Func) Validate(ctx context.Context, text, diagramType string) (Result, error) {
	return f(ctx, text, diagramType)
}

// Client is the HTTP adapter for the validator service.
// Endpoint: POST {base}/validate with {"text":..., "diagramType":...}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a validator Client with a 15s default timeout.
// Validation is a single bounded call, unlike the open-ended LLM stream.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type validateRequest struct {
	Text        string `json:"text"`
	DiagramType string `json:"diagramType"`
}

// Validate submits the candidate to the external checker.
// A non-2xx status or transport failure is an error (distinct from an
// invalid-syntax verdict, which arrives as Result{Valid:false}).
func (c *Client) Validate(ctx context.Context, text, diagramType string) (Result, error) {
	body, err := json.Marshal(validateRequest{Text: text, DiagramType: diagramType})
	if err != nil {
		return Result{}, err
	}

	url := c.baseURL + "/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("validator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("validator: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("validator: status %d", resp.StatusCode)
	}

	var out Result
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
		return Result{}, fmt.Errorf("validator: decode response: %w", decodeErr)
	}
	return out, nil
}
