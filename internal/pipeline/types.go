package pipeline

import (
	"context"
	"fmt"

	"codeberg.org/quebecsigns/server/internal/llm"
	"codeberg.org/quebecsigns/server/internal/prompt"
	"codeberg.org/quebecsigns/server/internal/retrieval"
	"codeberg.org/quebecsigns/server/internal/validator"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

// pipeline stage names carried on failures
const (
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageValidate = "validate"
)

// wraps a failure with the stage it happened in so the API layer can
// map it to a structured error
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// turns raw input into a query vector
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// assembles the evidence packet for a query vector
type Retriever interface {
	Retrieve(ctx context.Context, vec []float32, modality vectorindex.Modality, loc *retrieval.Location) (*retrieval.EvidencePacket, error)
}

// runs one generation over an assembled document
type Generator interface {
	Generate(ctx context.Context, doc prompt.Document) (*llm.Result, error)
	Model() string
}

// cached validated answers; a nil-safe implementation may always miss
type AnswerCache interface {
	Get(ctx context.Context, key string) *validator.StructuredResponse
	Set(ctx context.Context, key string, resp *validator.StructuredResponse)
}

// one explanation query
type Request struct {
	Modality       vectorindex.Modality
	Text           string
	ImageBytes     []byte
	ImageMediaType string
	Location       *retrieval.Location
}

// score metadata for one candidate surfaced to the client
type CandidateInfo struct {
	SignCode string  `json:"sign_code"`
	Score    float32 `json:"score"`
}

// the pipeline's answer plus retrieval metadata
type Response struct {
	Result       *validator.StructuredResponse
	NoCandidates bool
	Candidates   []CandidateInfo
	Model        string
	Truncated    bool
	Retried      bool
	CacheHit     bool
}

type Pipeline struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	cache     AnswerCache
}
