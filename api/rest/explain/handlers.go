package explain

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/quebecsigns/server/internal/errors"
	"codeberg.org/quebecsigns/server/internal/pipeline"
	"codeberg.org/quebecsigns/server/internal/retrieval"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

// 5 MB decoded; larger uploads are rejected before embedding
const maxImageBytes = 5 << 20

// runs one explanation query end to end
type Explainer interface {
	Explain(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// creates the handler for sign explanation queries
func Handler(pipe Explainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		pipeReq, err := toPipelineRequest(req)
		if err != nil {
			errors.BadRequest(c, err.Error(), nil)
			return
		}

		resp, err := pipe.Explain(c.Request.Context(), *pipeReq)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, toResponse(resp))
	}
}

// validates modality-dependent fields and decodes the image
func toPipelineRequest(req Request) (*pipeline.Request, error) {
	pipeReq := &pipeline.Request{Text: req.Text}

	switch req.Modality {
	case "text":
		pipeReq.Modality = vectorindex.ModalityText

		if req.Text == "" {
			return nil, stderrors.New("text is required for text queries")
		}
	case "image":
		pipeReq.Modality = vectorindex.ModalityImage

		if req.ImageBase64 == "" {
			return nil, stderrors.New("image_base64 is required for image queries")
		}

		if req.ImageMediaType == "" {
			return nil, stderrors.New("image_media_type is required for image queries")
		}

		img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, stderrors.New("image_base64 is not valid base64")
		}

		if len(img) > maxImageBytes {
			return nil, stderrors.New("image exceeds the 5 MB limit")
		}

		pipeReq.ImageBytes = img
		pipeReq.ImageMediaType = req.ImageMediaType
	}

	if req.Location != nil {
		pipeReq.Location = &retrieval.Location{
			Latitude:     req.Location.Latitude,
			Longitude:    req.Location.Longitude,
			Municipality: req.Location.Municipality,
		}
	}

	return pipeReq, nil
}

// maps pipeline failures onto the error taxonomy: deadline 504,
// failed upstream stages 502, anything else 500
func respondError(c *gin.Context, err error) {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		errors.Timeout(c, err)
		return
	}

	var stageErr *pipeline.StageError
	if stderrors.As(err, &stageErr) {
		switch stageErr.Stage {
		case pipeline.StageEmbed, pipeline.StageRetrieve:
			errors.UpstreamError(c, errors.CodeRetrievalFailed, "failed to retrieve sign candidates", err)
		case pipeline.StageGenerate:
			errors.UpstreamError(c, errors.CodeGenerationFailed, "failed to generate an explanation", err)
		case pipeline.StageValidate:
			errors.UpstreamError(c, errors.CodeResponseInvalid, "model output failed validation", err)
		default:
			errors.InternalError(c, "explanation query failed", err)
		}

		return
	}

	errors.InternalError(c, "explanation query failed", err)
}

func toResponse(resp *pipeline.Response) Response {
	out := Response{
		NoCandidates:      resp.NoCandidates,
		Candidates:        resp.Candidates,
		Model:             resp.Model,
		EvidenceTruncated: resp.Truncated,
		Retried:           resp.Retried,
		Cached:            resp.CacheHit,
	}

	if resp.Result != nil {
		out.Result = &ResultBody{
			SignType:    resp.Result.SignType,
			CanPark:     resp.Result.CanPark,
			Explanation: resp.Result.Explanation,
			ExtractedText: ExtractedText{
				French:  deref(resp.Result.ExtractedText.French),
				English: deref(resp.Result.ExtractedText.English),
			},
			Confidence: derefFloat(resp.Result.Confidence),
		}
	}

	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}

	return *f
}
