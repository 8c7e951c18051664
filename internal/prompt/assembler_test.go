package prompt

import (
	"strings"
	"testing"

	"codeberg.org/quebecsigns/server/internal/retrieval"
	"codeberg.org/quebecsigns/server/internal/store"
)

func samplePacket() *retrieval.EvidencePacket {
	return &retrieval.EvidencePacket{
		Candidates: []retrieval.Candidate{
			{
				SignCode: "P-120-10",
				Score:    0.91,
				Sources:  []string{"canonical_asset", "real_photo"},
				Definition: store.SignDefinition{
					SignCode:      "P-120-10",
					Category:      "Stationnement",
					ExplanationFR: "Stationnement interdit de 9h à 17h, du lundi au vendredi.",
					ExplanationEN: "No parking 9am to 5pm, Monday through Friday.",
				},
			},
		},
		Construction: []store.ConstructionZone{
			{
				PermitNumber: "AGD-2025-042",
				Status:       "Open",
				Reason:       "Watermain replacement",
				Impacts: []store.ConstructionImpact{
					{
						StreetName:           "Rue Saint-Denis",
						FromName:             "Rue Rachel",
						ToName:               "Avenue du Mont-Royal",
						StreetImpactType:     "Lane closure",
						ParkingPlacesRemoved: 12,
					},
				},
			},
		},
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	input := UserInput{Text: "can I park here on tuesday?"}

	first := Assemble(input, samplePacket())
	second := Assemble(input, samplePacket())

	if first.System != second.System {
		t.Error("Expected byte-identical system prompt for identical input")
	}

	if first.UserText != second.UserText {
		t.Error("Expected byte-identical user text for identical input")
	}
}

func TestAssembleCarriesVerbatimExplanations(t *testing.T) {
	doc := Assemble(UserInput{Text: "what does this mean?"}, samplePacket())

	if !strings.Contains(doc.System, "Stationnement interdit de 9h à 17h, du lundi au vendredi.") {
		t.Error("Expected the French explanation verbatim in the prompt")
	}

	if !strings.Contains(doc.System, "No parking 9am to 5pm, Monday through Friday.") {
		t.Error("Expected the English explanation verbatim in the prompt")
	}
}

func TestAssembleIncludesConstructionContext(t *testing.T) {
	doc := Assemble(UserInput{Text: "parking?"}, samplePacket())

	if !strings.Contains(doc.System, "AGD-2025-042") {
		t.Error("Expected the construction permit in the prompt")
	}

	if !strings.Contains(doc.System, "12 parking places removed") {
		t.Error("Expected the parking impact in the prompt")
	}
}

func TestAssembleTruncationNote(t *testing.T) {
	packet := samplePacket()
	packet.Truncated = true

	doc := Assemble(UserInput{Text: "parking?"}, packet)

	if !doc.EvidenceTruncated {
		t.Error("Expected the truncation flag carried through")
	}

	if !strings.Contains(doc.System, "truncated") {
		t.Error("Expected a truncation note in the prompt")
	}

	untruncated := Assemble(UserInput{Text: "parking?"}, samplePacket())
	if strings.Contains(untruncated.System, "truncated") {
		t.Error("Expected no truncation note without truncation")
	}
}

func TestAssembleImagePassthrough(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	doc := Assemble(UserInput{ImageBytes: img, ImageMediaType: "image/jpeg"}, samplePacket())

	if string(doc.ImageBytes) != string(img) || doc.ImageMediaType != "image/jpeg" {
		t.Error("Expected image bytes and media type carried out-of-band")
	}

	if doc.UserText == "" {
		t.Error("Expected a default user text for image-only queries")
	}
}

func TestAssembleJSONOnlyInstruction(t *testing.T) {
	doc := Assemble(UserInput{Text: "parking?"}, samplePacket())

	if !strings.Contains(doc.System, "ONLY the JSON object") {
		t.Error("Expected the JSON-only output instruction")
	}
}
