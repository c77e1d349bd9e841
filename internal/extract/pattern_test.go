package extract

import (
	"context"
	"testing"

	"github.com/JordanCoin/openfoia/internal/config"
	"github.com/JordanCoin/openfoia/pkg/types"
)

func docFrom(id, text string) *types.Document {
	return &types.Document{
		ID:    id,
		Text:  text,
		Pages: []types.Page{{Number: 1, Start: 0, End: len(text)}},
	}
}

func mentionsOfType(mentions []types.Mention, entityType string) []types.Mention {
	var out []types.Mention
	for _, m := range mentions {
		if m.Type == entityType {
			out = append(out, m)
		}
	}
	return out
}

func TestPatternExtractorBuiltins(t *testing.T) {
	ex, err := NewPatternExtractor(nil)
	if err != nil {
		t.Fatalf("NewPatternExtractor() failed: %v", err)
	}

	doc := docFrom("doc-1",
		"Letter from FBI dated 2023-01-05 to John Smith regarding a payment of $1,250.00. "+
			"Contact agent.jones@fbi.gov or (202) 555-0147. See Case No. F-2021-00123.")

	result, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	tests := []struct {
		entityType string
		wantText   string
	}{
		{types.EntityTypeOrganization, "FBI"},
		{types.EntityTypeDate, "2023-01-05"},
		{types.EntityTypePerson, "John Smith"},
		{types.EntityTypeMoney, "$1,250.00"},
		{types.EntityTypeEmail, "agent.jones@fbi.gov"},
		{types.EntityTypeDocumentID, "Case No. F-2021-00123"},
	}
	for _, tt := range tests {
		found := false
		for _, m := range mentionsOfType(result.Mentions, tt.entityType) {
			if m.Text == tt.wantText {
				found = true
				if got := doc.Text[m.Span.Start:m.Span.End]; got != tt.wantText {
					t.Errorf("%s span covers %q, want %q", tt.entityType, got, tt.wantText)
				}
				if !doc.Contains(m.Span) {
					t.Errorf("%s mention has invalid span %+v", tt.entityType, m.Span)
				}
				if m.Extractor != PatternExtractorName {
					t.Errorf("%s mention extractor = %q", tt.entityType, m.Extractor)
				}
			}
		}
		if !found {
			t.Errorf("no %s mention with text %q; got %v", tt.entityType, tt.wantText, result.Mentions)
		}
	}
}

func TestPatternExtractorHonorificBeatsCapitalized(t *testing.T) {
	ex, err := NewPatternExtractor(nil)
	if err != nil {
		t.Fatalf("NewPatternExtractor() failed: %v", err)
	}

	doc := docFrom("doc-1", "Signed by Dr. Jane Doe on behalf of the agency.")
	result, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	persons := mentionsOfType(result.Mentions, types.EntityTypePerson)
	var honorific bool
	for _, m := range persons {
		if m.Text == "Dr. Jane Doe" && m.Confidence == 0.85 {
			honorific = true
		}
	}
	if !honorific {
		t.Errorf("expected an honorific person mention, got %v", persons)
	}
}

func TestPatternExtractorCustomTypes(t *testing.T) {
	custom := []config.CustomType{
		{Name: "CASE_NUMBER", Pattern: `\b\d{2}-cv-\d{5}\b`, Confidence: 1.0},
	}
	ex, err := NewPatternExtractor(custom)
	if err != nil {
		t.Fatalf("NewPatternExtractor() failed: %v", err)
	}

	doc := docFrom("doc-1", "Filed under case number 23-cv-00456 last year.")
	result, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	cases := mentionsOfType(result.Mentions, "CASE_NUMBER")
	if len(cases) != 1 {
		t.Fatalf("CASE_NUMBER mentions = %d, want 1 (%v)", len(cases), cases)
	}
	if cases[0].Text != "23-cv-00456" {
		t.Errorf("case number text = %q, want 23-cv-00456", cases[0].Text)
	}
	if cases[0].Confidence != 1.0 {
		t.Errorf("case number confidence = %v, want 1.0", cases[0].Confidence)
	}
}

func TestPatternExtractorMalformedPatternFailsFast(t *testing.T) {
	custom := []config.CustomType{
		{Name: "BROKEN", Pattern: `([unclosed`, Confidence: 1.0},
	}
	if _, err := NewPatternExtractor(custom); err == nil {
		t.Fatal("NewPatternExtractor() accepted a malformed pattern")
	}
}

func TestPatternExtractorMentionsSorted(t *testing.T) {
	ex, err := NewPatternExtractor(nil)
	if err != nil {
		t.Fatalf("NewPatternExtractor() failed: %v", err)
	}

	doc := docFrom("doc-1", "Ann Brown emailed bob@example.org on 2022-03-04.")
	result, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	for i := 1; i < len(result.Mentions); i++ {
		if result.Mentions[i].Span.Start < result.Mentions[i-1].Span.Start {
			t.Fatalf("mentions not sorted by span start: %v", result.Mentions)
		}
	}
}
