package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransportError reports a failure to reach the model service or a non-200
// response. These may be transient; the caller decides whether to retry.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model service transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response that violates the wire contract: invalid
// JSON, a missing field, or a label count that does not match the request.
// Never retryable.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("model service protocol error: %s", e.Reason)
}

// Client is a client for the sentiment model service API.
type Client struct {
	baseURL    string
	chunkSize  int
	httpClient *http.Client
}

// PredictRequest represents a prediction request for a chunk of texts.
type PredictRequest struct {
	Texts []string `json:"texts"`
}

// PredictResponse represents the model service's prediction result.
type PredictResponse struct {
	Labels []int `json:"labels"`
}

// HealthResponse represents the model service health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// NewClient creates a new model service client. Requests are split into
// chunks of at most chunkSize texts; the timeout bounds a single chunk
// request and should stay generous since remote inference is slow.
func NewClient(baseURL string, chunkSize int, timeout time.Duration) *Client {
	if chunkSize <= 0 {
		chunkSize = 3000
	}
	return &Client{
		baseURL:   baseURL,
		chunkSize: chunkSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict returns one label per input text, in input order. The input is sent
// in fixed-size chunks and the per-chunk results are concatenated in chunk
// order, so labels[i] always corresponds to texts[i].
func (c *Client) Predict(ctx context.Context, texts []string) ([]int, error) {
	if len(texts) == 0 {
		return []int{}, nil
	}

	labels := make([]int, 0, len(texts))
	for start := 0; start < len(texts); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(texts) {
			end = len(texts)
		}

		chunkLabels, err := c.predictChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		labels = append(labels, chunkLabels...)
	}

	return labels, nil
}

func (c *Client) predictChunk(ctx context.Context, texts []string) ([]int, error) {
	jsonData, err := json.Marshal(PredictRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{Err: fmt.Errorf("model service returned status %d: %s", resp.StatusCode, string(body))}
	}

	var result PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if result.Labels == nil {
		return nil, &ProtocolError{Reason: "response missing 'labels' field"}
	}
	if len(result.Labels) != len(texts) {
		return nil, &ProtocolError{Reason: fmt.Sprintf("expected %d labels, got %d", len(texts), len(result.Labels))}
	}
	for i, label := range result.Labels {
		if label < 0 {
			return nil, &ProtocolError{Reason: fmt.Sprintf("negative label %d at position %d", label, i)}
		}
	}

	return result.Labels, nil
}

// HealthCheck checks if the model service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{Err: fmt.Errorf("model service returned status %d: %s", resp.StatusCode, string(body))}
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("failed to decode response: %v", err)}
	}

	return &result, nil
}
