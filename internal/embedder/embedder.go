package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	workersAIBaseURL = "https://api.cloudflare.com/client/v4/accounts/%s/ai/run/%s"

	imageModel = "@cf/openai/clip-vit-base-patch32"
	textModel  = "@cf/baai/bge-base-en-v1.5"

	// ImageDimensions is the vector size of the image embedding space.
	ImageDimensions = 512
	// TextDimensions is the vector size of the text embedding space.
	TextDimensions = 768
)

// shared HTTP client for Workers AI calls
var workersAIHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Workers AI calls
var workersAIRateLimiter = rate.NewLimiter(20, 5)

func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: workersAIHTTPClient,
	}
}

// generates a 768-dim embedding for a text query
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("no text provided")
	}

	jsonData, err := json.Marshal(textRunRequest{Text: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.run(ctx, textModel, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	var runResp textRunResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !runResp.Success || len(runResp.Result.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned: %v", runResp.Errors)
	}

	embedding := runResp.Result.Data[0]
	if len(embedding) != TextDimensions {
		return nil, fmt.Errorf("unexpected text embedding dimension %d, want %d", len(embedding), TextDimensions)
	}

	return embedding, nil
}

// generates a 512-dim embedding for a raw image
func (c *Client) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}

	body, err := c.run(ctx, imageModel, "application/octet-stream", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}

	var runResp imageRunResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !runResp.Success || len(runResp.Result.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned: %v", runResp.Errors)
	}

	if len(runResp.Result.Data) != ImageDimensions {
		return nil, fmt.Errorf("unexpected image embedding dimension %d, want %d", len(runResp.Result.Data), ImageDimensions)
	}

	return runResp.Result.Data, nil
}

// executes a Workers AI model run and returns the raw response body
func (c *Client) run(ctx context.Context, model, contentType string, payload io.Reader) ([]byte, error) {
	url := fmt.Sprintf(workersAIBaseURL, c.config.AccountID, model)

	req, err := http.NewRequestWithContext(ctx, "POST", url, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIToken))

	if err := workersAIRateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
