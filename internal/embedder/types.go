package embedder

import "net/http"

type Config struct {
	AccountID string
	APIToken  string
}

// generates fixed-dimension vectors from user input via Cloudflare
// Workers AI. Image and text queries use different models and live in
// different vector spaces.
type Client struct {
	config     Config
	httpClient *http.Client
}

type textRunRequest struct {
	Text []string `json:"text"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type textRunResponse struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  struct {
		Data [][]float32 `json:"data"`
	} `json:"result"`
}

type imageRunResponse struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  struct {
		Data []float32 `json:"data"`
	} `json:"result"`
}
