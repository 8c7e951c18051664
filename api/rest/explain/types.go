package explain

import "codeberg.org/quebecsigns/server/internal/pipeline"

// Request represents the request body for a sign explanation query
type Request struct {
	Modality       string    `json:"modality" binding:"required,oneof=image text"`
	Text           string    `json:"text"`
	ImageBase64    string    `json:"image_base64"`
	ImageMediaType string    `json:"image_media_type"`
	Location       *Location `json:"location"`
}

type Location struct {
	Latitude     float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Municipality string  `json:"municipality"`
}

// Response represents the response for a sign explanation query
type Response struct {
	Result            *ResultBody              `json:"result"`
	NoCandidates      bool                     `json:"no_candidates,omitempty"`
	Candidates        []pipeline.CandidateInfo `json:"candidates,omitempty"`
	Model             string                   `json:"model"`
	EvidenceTruncated bool                     `json:"evidence_truncated,omitempty"`
	Retried           bool                     `json:"retried,omitempty"`
	Cached            bool                     `json:"cached,omitempty"`
}

// the validated structured answer
type ResultBody struct {
	SignType      string        `json:"sign_type"`
	CanPark       string        `json:"can_park,omitempty"`
	Explanation   string        `json:"explanation"`
	ExtractedText ExtractedText `json:"extracted_text"`
	Confidence    float64       `json:"confidence"`
}

type ExtractedText struct {
	French  string `json:"french"`
	English string `json:"english"`
}
