package validator

import (
	"errors"
	"testing"
)

const validOutput = `{
	"signType": "Parking",
	"canPark": "No",
	"explanation": "No parking on Tuesdays between 9am and 5pm.",
	"extractedText": {"french": "Stationnement interdit", "english": "No parking"},
	"confidence": 0.92
}`

func TestValidateAcceptsWellFormedOutput(t *testing.T) {
	resp, err := Validate(validOutput)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if resp.SignType != SignTypeParking || resp.CanPark != CanParkNo {
		t.Errorf("Unexpected parse: %+v", resp)
	}

	if *resp.ExtractedText.French != "Stationnement interdit" {
		t.Errorf("Unexpected French text: %q", *resp.ExtractedText.French)
	}
}

// models often wrap the object in prose; the first balanced object must
// still be extracted
func TestValidateExtractsFromProse(t *testing.T) {
	wrapped := "Here is the analysis you asked for:\n\n" + validOutput + "\n\nLet me know if you need anything else."

	resp, err := Validate(wrapped)
	if err != nil {
		t.Fatalf("Validate failed on prose-wrapped output: %v", err)
	}

	if resp.Confidence == nil || *resp.Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %v", resp.Confidence)
	}
}

func TestValidateBracesInsideStrings(t *testing.T) {
	raw := `{"signType": "Other", "explanation": "shows {arrow} symbol", "extractedText": {"french": "", "english": ""}, "confidence": 0.5}`

	if _, err := Validate(raw); err != nil {
		t.Fatalf("Validate failed on braces inside string literal: %v", err)
	}
}

func TestValidateNoJSON(t *testing.T) {
	_, err := Validate("I could not identify the sign, sorry.")

	if !errors.Is(err, ErrNoJSONFound) {
		t.Errorf("Expected ErrNoJSONFound, got %v", err)
	}
}

func TestValidateRejectsUnknownSignType(t *testing.T) {
	raw := `{"signType": "Car", "explanation": "x", "extractedText": {"french": "", "english": ""}, "confidence": 0.5}`

	_, err := Validate(raw)

	var violation *SchemaViolation
	if !errors.As(err, &violation) || violation.Field != "signType" {
		t.Errorf("Expected signType violation, got %v", err)
	}
}

func TestValidateConfidenceOutOfRangeRejected(t *testing.T) {
	for _, confidence := range []string{"1.5", "-0.1"} {
		raw := `{"signType": "Other", "explanation": "x", "extractedText": {"french": "", "english": ""}, "confidence": ` + confidence + `}`

		_, err := Validate(raw)

		var violation *SchemaViolation
		if !errors.As(err, &violation) || violation.Field != "confidence" {
			t.Errorf("Expected confidence violation for %s, got %v", confidence, err)
		}
	}
}

// an absent confidence field must not decode to a passing zero
func TestValidateMissingConfidenceRejected(t *testing.T) {
	raw := `{"signType": "Other", "explanation": "x", "extractedText": {"french": "", "english": ""}}`

	_, err := Validate(raw)

	var violation *SchemaViolation
	if !errors.As(err, &violation) || violation.Field != "confidence" {
		t.Errorf("Expected confidence violation for missing field, got %v", err)
	}
}

// a wrong-typed field in a well-formed object is a schema violation,
// not a missing object
func TestValidateTypeMismatchIsSchemaViolation(t *testing.T) {
	raw := `{"signType": "Other", "explanation": "x", "extractedText": {"french": "", "english": ""}, "confidence": "high"}`

	_, err := Validate(raw)

	if errors.Is(err, ErrNoJSONFound) {
		t.Fatalf("Expected a schema violation, got ErrNoJSONFound: %v", err)
	}

	var violation *SchemaViolation
	if !errors.As(err, &violation) || violation.Field != "confidence" {
		t.Errorf("Expected confidence violation for type mismatch, got %v", err)
	}
}

func TestValidateCanParkRequiredForParking(t *testing.T) {
	raw := `{"signType": "Parking", "explanation": "x", "extractedText": {"french": "", "english": ""}, "confidence": 0.5}`

	_, err := Validate(raw)

	var violation *SchemaViolation
	if !errors.As(err, &violation) || violation.Field != "canPark" {
		t.Errorf("Expected canPark violation, got %v", err)
	}
}

func TestValidateCanParkOptionalOtherwise(t *testing.T) {
	raw := `{"signType": "Construction", "explanation": "x", "extractedText": {"french": "", "english": ""}, "confidence": 0.5}`

	if _, err := Validate(raw); err != nil {
		t.Errorf("Expected canPark optional for non-parking signs, got %v", err)
	}
}

func TestValidateMissingExtractedText(t *testing.T) {
	raw := `{"signType": "Other", "explanation": "x", "extractedText": {"english": ""}, "confidence": 0.5}`

	_, err := Validate(raw)

	var violation *SchemaViolation
	if !errors.As(err, &violation) || violation.Field != "extractedText.french" {
		t.Errorf("Expected extractedText.french violation, got %v", err)
	}
}

// empty strings are valid extracted text, absence is not
func TestValidateEmptyExtractedTextAllowed(t *testing.T) {
	raw := `{"signType": "Other", "explanation": "x", "extractedText": {"french": "", "english": ""}, "confidence": 0}`

	resp, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if *resp.ExtractedText.French != "" || *resp.ExtractedText.English != "" {
		t.Error("Expected empty extracted text preserved")
	}
}
