package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/quebecsigns/server/internal/prompt"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	defaultModel         = "claude-3-5-sonnet-20241022"
	defaultMaxTokens     = 1024
	defaultTemperature   = 0.2
)

// shared HTTP client for Anthropic API calls
var anthropicHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Anthropic API calls (50 requests/second with burst capacity of 10)
var anthropicRateLimiter = rate.NewLimiter(50, 10)

type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

type AnthropicClient struct {
	config     AnthropicConfig
	httpClient *http.Client
}

func NewAnthropicClient(config AnthropicConfig) *AnthropicClient {
	if config.Model == "" {
		config.Model = defaultModel
	}

	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}

	return &AnthropicClient{
		config:     config,
		httpClient: anthropicHTTPClient,
	}
}

// reads client settings from the environment
func AnthropicConfigFromEnv() AnthropicConfig {
	config := AnthropicConfig{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:  os.Getenv("ANTHROPIC_MODEL"),
	}

	return config
}

func (c *AnthropicClient) Model() string {
	return c.config.Model
}

type generateRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Temperature float32      `json:"temperature"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// text or image content block; Source is only set for images
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type generateResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// runs one generation for the assembled document. When the document
// carries image bytes they are sent as a vision content block ahead of
// the user text.
func (c *AnthropicClient) Generate(ctx context.Context, doc prompt.Document) (*Result, error) {
	blocks := make([]contentBlock, 0, 2)

	if len(doc.ImageBytes) > 0 {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: doc.ImageMediaType,
				Data:      base64.StdEncoding.EncodeToString(doc.ImageBytes),
			},
		})
	}

	blocks = append(blocks, contentBlock{Type: "text", Text: doc.UserText})

	reqBody := generateRequest{
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		System:      doc.System,
		Temperature: c.config.Temperature,
		Messages:    []apiMessage{{Role: "user", Content: blocks}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicMessagesURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	// rate limiting
	if err := anthropicRateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GenerationError{Message: fmt.Sprintf("failed to send request: %v", err)}
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck
		return nil, &GenerationError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var apiResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &GenerationError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if len(apiResp.Content) == 0 {
		return nil, &GenerationError{Message: "no content in response"}
	}

	return &Result{
		Text:  strings.TrimSpace(apiResp.Content[0].Text),
		Model: apiResp.Model,
		Usage: Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}, nil
}
