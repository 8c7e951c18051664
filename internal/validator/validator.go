package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// raw model output contained no JSON object at all
var ErrNoJSONFound = errors.New("validator: no JSON object found in model output")

// the first schema rule the output broke. Field names the offending
// field so a corrective regeneration can call it out.
type SchemaViolation struct {
	Field  string
	Reason string
}

func (v *SchemaViolation) Error() string {
	return fmt.Sprintf("invalid %s: %s", v.Field, v.Reason)
}

const (
	SignTypeParking      = "Parking"
	SignTypeConstruction = "Construction"
	SignTypeOther        = "Other"
)

const (
	CanParkYes   = "Yes"
	CanParkNo    = "No"
	CanParkMaybe = "Maybe"
)

// bilingual text read off the sign; empty strings are valid
type ExtractedText struct {
	French  *string `json:"french"`
	English *string `json:"english"`
}

// the structured answer returned to the client. Confidence is a
// pointer so an absent field is distinguishable from a literal 0.
type StructuredResponse struct {
	SignType      string        `json:"signType"`
	CanPark       string        `json:"canPark,omitempty"`
	Explanation   string        `json:"explanation"`
	ExtractedText ExtractedText `json:"extractedText"`
	Confidence    *float64      `json:"confidence"`
}

// parses and validates raw model output. Models wrap JSON in prose
// often enough that the first balanced object substring is extracted
// before decoding. Out-of-range values are rejected, never clamped.
func Validate(raw string) (*StructuredResponse, error) {
	candidate, ok := extractJSONObject(raw)
	if !ok {
		return nil, ErrNoJSONFound
	}

	var resp StructuredResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		// a balanced object with a wrong-typed field is a schema
		// problem, not a missing object
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "response"
			}

			return nil, &SchemaViolation{
				Field:  field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}

		return nil, fmt.Errorf("%w: %v", ErrNoJSONFound, err)
	}

	switch resp.SignType {
	case SignTypeParking, SignTypeConstruction, SignTypeOther:
	default:
		return nil, &SchemaViolation{
			Field:  "signType",
			Reason: fmt.Sprintf("%q is not one of Parking, Construction, Other", resp.SignType),
		}
	}

	if resp.SignType == SignTypeParking {
		switch resp.CanPark {
		case CanParkYes, CanParkNo, CanParkMaybe:
		default:
			return nil, &SchemaViolation{
				Field:  "canPark",
				Reason: fmt.Sprintf("%q is not one of Yes, No, Maybe (required for Parking signs)", resp.CanPark),
			}
		}
	}

	if resp.Confidence == nil {
		return nil, &SchemaViolation{Field: "confidence", Reason: "missing"}
	}

	if *resp.Confidence < 0 || *resp.Confidence > 1 {
		return nil, &SchemaViolation{
			Field:  "confidence",
			Reason: fmt.Sprintf("%g is outside [0, 1]", *resp.Confidence),
		}
	}

	if resp.ExtractedText.French == nil {
		return nil, &SchemaViolation{Field: "extractedText.french", Reason: "missing"}
	}

	if resp.ExtractedText.English == nil {
		return nil, &SchemaViolation{Field: "extractedText.english", Reason: "missing"}
	}

	return &resp, nil
}

// finds the first balanced top-level JSON object substring, skipping
// braces inside string literals
func extractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return "", false
}
