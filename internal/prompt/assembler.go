package prompt

import (
	"fmt"
	"strings"

	"codeberg.org/quebecsigns/server/internal/retrieval"
)

// everything the generation client needs for one call. The system and
// user text are fully assembled strings; image bytes travel out-of-band
// for the vision content block.
type Document struct {
	System         string
	UserText       string
	ImageBytes     []byte
	ImageMediaType string

	// carried through from the evidence packet so the caller can
	// surface incomplete evidence to the client
	EvidenceTruncated bool
}

// what the user actually submitted
type UserInput struct {
	Text           string
	ImageBytes     []byte
	ImageMediaType string
}

// assembles the complete prompt document for one query. Pure and
// deterministic: identical input yields byte-identical output, which is
// what makes the assembled document a safe cache key.
func Assemble(input UserInput, packet *retrieval.EvidencePacket) Document {
	var builder strings.Builder

	// section 1: task
	builder.WriteString("═══════════════════════════════════════════════════════════\n")
	builder.WriteString("TASK\n")
	builder.WriteString("═══════════════════════════════════════════════════════════\n\n")
	builder.WriteString(getTask())
	builder.WriteString("\n\n")

	// section 2: output schema
	builder.WriteString("═══════════════════════════════════════════════════════════\n")
	builder.WriteString("OUTPUT SCHEMA\n")
	builder.WriteString("═══════════════════════════════════════════════════════════\n\n")
	builder.WriteString(getSchema())
	builder.WriteString("\n\n")

	// section 3: candidate signs
	builder.WriteString("═══════════════════════════════════════════════════════════\n")
	builder.WriteString("CANDIDATE SIGNS (ranked by similarity)\n")
	builder.WriteString("═══════════════════════════════════════════════════════════\n\n")

	for i, cand := range packet.Candidates {
		builder.WriteString("─────────────────────────────────────────\n")
		builder.WriteString(fmt.Sprintf("Candidate %d: %s (similarity %.3f)\n", i+1, cand.SignCode, cand.Score))
		builder.WriteString(fmt.Sprintf("Matched via: %s\n", strings.Join(cand.Sources, ", ")))
		builder.WriteString("─────────────────────────────────────────\n")

		if cand.Definition.Category != "" {
			builder.WriteString(fmt.Sprintf("Category: %s\n", cand.Definition.Category))
		}

		// official explanations are authoritative reference text and
		// must be passed through verbatim
		builder.WriteString(fmt.Sprintf("Official explanation (FR): %s\n", cand.Definition.ExplanationFR))
		builder.WriteString(fmt.Sprintf("Official explanation (EN): %s\n", cand.Definition.ExplanationEN))

		if cand.Definition.RPACode != "" {
			builder.WriteString(fmt.Sprintf("RPA code: %s (%s)\n", cand.Definition.RPACode, cand.Definition.RPADescription))
		}

		if len(cand.Instances) > 0 {
			builder.WriteString(fmt.Sprintf("Known installations near the user (%d):\n", len(cand.Instances)))

			for _, inst := range cand.Instances {
				builder.WriteString(fmt.Sprintf("  - pole %s at (%.5f, %.5f), %s\n",
					inst.PoleID, inst.Latitude, inst.Longitude, inst.Municipality))
			}
		}

		builder.WriteString("\n")
	}

	// section 4: location context (if any)
	if len(packet.Construction) > 0 || len(packet.TaxiStands) > 0 {
		builder.WriteString("═══════════════════════════════════════════════════════════\n")
		builder.WriteString("NEARBY CONTEXT\n")
		builder.WriteString("═══════════════════════════════════════════════════════════\n\n")

		for _, zone := range packet.Construction {
			builder.WriteString(fmt.Sprintf("Construction permit %s (%s): %s\n",
				zone.PermitNumber, zone.Status, zone.Reason))

			for _, impact := range zone.Impacts {
				builder.WriteString(fmt.Sprintf("  - %s between %s and %s: %s, %d parking places removed\n",
					impact.StreetName, impact.FromName, impact.ToName,
					impact.StreetImpactType, impact.ParkingPlacesRemoved))
			}
		}

		for _, stand := range packet.TaxiStands {
			builder.WriteString(fmt.Sprintf("Taxi stand %q (%s): %d places, hours %s\n",
				stand.Name, stand.Type, stand.NumPlaces, stand.OperationHours))
		}

		builder.WriteString("\n")
	}

	if packet.Truncated {
		builder.WriteString("Note: the evidence above was truncated to fit; there may be additional matches or context not shown.\n\n")
	}

	userText := input.Text
	if userText == "" {
		userText = "Explain the sign in the attached photo."
	}

	return Document{
		System:            builder.String(),
		UserText:          userText,
		ImageBytes:        input.ImageBytes,
		ImageMediaType:    input.ImageMediaType,
		EvidenceTruncated: packet.Truncated,
	}
}

func getTask() string {
	return `You are an expert on Quebec road signage, especially Montreal parking signs.

Your task is to explain what the user's sign means in plain language, grounded
in the candidate signs and official explanations below.

Guidelines:
- Ground your answer in the CANDIDATE SIGNS; do not invent sign meanings
- Use the NEARBY CONTEXT to mention temporary restrictions (construction, taxi stands) when relevant
- If the candidates conflict, pick the best match and lower your confidence
- Answer in the schema below and emit ONLY the JSON object, no markdown, no prose before or after`
}

func getSchema() string {
	return `{
  "signType": "Parking" | "Construction" | "Other",
  "canPark": "Yes" | "No" | "Maybe",        // required when signType is Parking, omit otherwise
  "explanation": "plain-language explanation for the user",
  "extractedText": {
    "french": "sign text in French, empty string if none",
    "english": "sign text in English, empty string if none"
  },
  "confidence": 0.0 to 1.0
}`
}
