package pipeline

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/quebecsigns/server/internal/cache"
	"codeberg.org/quebecsigns/server/internal/logger"
	"codeberg.org/quebecsigns/server/internal/prompt"
	"codeberg.org/quebecsigns/server/internal/retrieval"
	"codeberg.org/quebecsigns/server/internal/validator"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

func New(embedder Embedder, retriever Retriever, generator Generator, answerCache AnswerCache) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		cache:     answerCache,
	}
}

// runs one query through the full pipeline: embed, retrieve, assemble,
// generate, validate. Every stage honors the request context; a failed
// stage is wrapped with its name. No-candidates is a valid outcome, not
// an error.
func (p *Pipeline) Explain(ctx context.Context, req Request) (*Response, error) {
	vec, err := p.embed(ctx, req)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: err}
	}

	packet, err := p.retriever.Retrieve(ctx, vec, req.Modality, req.Location)
	if errors.Is(err, retrieval.ErrNoCandidates) {
		return &Response{NoCandidates: true, Model: p.generator.Model()}, nil
	}
	if err != nil {
		return nil, &StageError{Stage: StageRetrieve, Err: err}
	}

	doc := prompt.Assemble(prompt.UserInput{
		Text:           req.Text,
		ImageBytes:     req.ImageBytes,
		ImageMediaType: req.ImageMediaType,
	}, packet)

	resp := &Response{
		Candidates: candidateInfo(packet),
		Model:      p.generator.Model(),
		Truncated:  doc.EvidenceTruncated,
	}

	key := cache.Key(doc.System, doc.UserText, doc.ImageBytes)

	if cached := p.cache.Get(ctx, key); cached != nil {
		resp.Result = cached
		resp.CacheHit = true

		return resp, nil
	}

	result, retried, err := p.generateValidated(ctx, doc)
	if err != nil {
		return nil, err
	}

	resp.Result = result
	resp.Retried = retried

	p.cache.Set(ctx, key, result)

	return resp, nil
}

func (p *Pipeline) embed(ctx context.Context, req Request) ([]float32, error) {
	if req.Modality == vectorindex.ModalityImage {
		return p.embedder.EmbedImage(ctx, req.ImageBytes)
	}

	return p.embedder.EmbedText(ctx, req.Text)
}

// generates and validates, with exactly one corrective regeneration on
// a validation failure. The corrective message names the violated field
// so the model can fix it; a second failure is terminal.
func (p *Pipeline) generateValidated(ctx context.Context, doc prompt.Document) (*validator.StructuredResponse, bool, error) {
	gen, err := p.generator.Generate(ctx, doc)
	if err != nil {
		return nil, false, &StageError{Stage: StageGenerate, Err: err}
	}

	result, verr := validator.Validate(gen.Text)
	if verr == nil {
		return result, false, nil
	}

	logger.Warn("model output failed validation, retrying once", "error", verr)

	retryDoc := doc
	retryDoc.UserText = doc.UserText + "\n\n" + correctiveMessage(verr)

	gen, err = p.generator.Generate(ctx, retryDoc)
	if err != nil {
		return nil, true, &StageError{Stage: StageGenerate, Err: err}
	}

	result, verr = validator.Validate(gen.Text)
	if verr != nil {
		return nil, true, &StageError{Stage: StageValidate, Err: verr}
	}

	return result, true, nil
}

func correctiveMessage(verr error) string {
	var violation *validator.SchemaViolation
	if errors.As(verr, &violation) {
		return fmt.Sprintf("Your previous answer had an invalid %q field (%s). Respond again with ONLY the JSON object, following the schema exactly.", violation.Field, violation.Reason)
	}

	return "Your previous answer contained no JSON object. Respond again with ONLY the JSON object, following the schema exactly."
}

func candidateInfo(packet *retrieval.EvidencePacket) []CandidateInfo {
	info := make([]CandidateInfo, 0, len(packet.Candidates))

	for _, cand := range packet.Candidates {
		info = append(info, CandidateInfo{SignCode: cand.SignCode, Score: cand.Score})
	}

	return info
}
