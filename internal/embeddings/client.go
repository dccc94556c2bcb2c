// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default dimensionality of the sidecar's all-MiniLM-L6-v2 model. All stored
// vectors must share one dimensionality per deployment.
const DefaultDimensions = 384

// Client is the interface for embedding providers
type Client interface {
	// Embed generates embedding vectors for the given texts in one batch call
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Health performs a cheap liveness check against the provider
	Health(ctx context.Context) error

	// Dimensions returns the fixed vector dimensionality of the provider
	Dimensions() int
}

// HTTPClient talks to the embedding sidecar service
// (POST /embed, GET /health).
type HTTPClient struct {
	baseURL    string
	dimensions int
	httpClient *http.Client
}

// EmbedRequest is the request body for the sidecar's /embed endpoint
type EmbedRequest struct {
	Texts []string `json:"texts"`
}

// EmbedResponse is the response body from the sidecar's /embed endpoint
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dimensions int         `json:"dimensions"`
}

// NewHTTPClient creates a new embedding sidecar client. The http.Client
// timeout bounds the batch call; liveness probes use a per-request context
// deadline on top of it.
func NewHTTPClient(baseURL string, dimensions int, timeout time.Duration) *HTTPClient {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Embed generates embedding vectors for the given texts in one batch call
func (c *HTTPClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonBody, err := json.Marshal(EmbedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service error: status %d", resp.StatusCode)
	}

	var embResp EmbedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(embResp.Embeddings), len(texts))
	}

	return embResp.Embeddings, nil
}

// Health performs a cheap liveness check against the sidecar
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	return nil
}

// Dimensions returns the fixed vector dimensionality of the provider
func (c *HTTPClient) Dimensions() int {
	return c.dimensions
}

// MockClient is a mock implementation for testing
type MockClient struct {
	EmbedFunc   func(texts []string) ([][]float32, error)
	HealthFunc  func() error
	Dims        int
	EmbedCalls  int
	HealthCalls int
}

// Embed calls the mock function
func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.EmbedCalls++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(texts)
	}
	// Default: return zero vectors
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, m.Dimensions())
	}
	return vectors, nil
}

// Health calls the mock function
func (m *MockClient) Health(ctx context.Context) error {
	m.HealthCalls++
	if m.HealthFunc != nil {
		return m.HealthFunc()
	}
	return nil
}

// Dimensions returns the mock dimensionality
func (m *MockClient) Dimensions() int {
	if m.Dims > 0 {
		return m.Dims
	}
	return DefaultDimensions
}
