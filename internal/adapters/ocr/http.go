// Package ocr provides the OCR-engine adapter.
// Clean Architecture: Adapter implementing ports.OCRService.
// Calls the external Python OCR sidecar for text extraction.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient implements ports.OCRService against the OCR sidecar.
type HTTPClient struct {
	serviceURL string
	client     *http.Client
}

// NewHTTPClient creates a new OCR client.
func NewHTTPClient(serviceURL string) *HTTPClient {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &HTTPClient{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 120 * time.Second, // model load on first call can be slow
		},
	}
}

// extractRequest is the sidecar request format.
type extractRequest struct {
	Base64Image string `json:"base64_image"`
}

// extractResponse is the sidecar response format.
type extractResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// ExtractText extracts raw text from a base64-encoded receipt image.
func (c *HTTPClient) ExtractText(ctx context.Context, base64Image string) (string, error) {
	jsonData, err := json.Marshal(extractRequest{Base64Image: base64Image})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.serviceURL+"/extract", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OCR service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service returned status %d", resp.StatusCode)
	}

	var result extractResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("OCR extraction: %s", result.Error)
	}

	return result.Text, nil
}

// IsServiceHealthy checks if the OCR sidecar is reachable.
func (c *HTTPClient) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
