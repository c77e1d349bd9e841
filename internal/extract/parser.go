package extract

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// extractJSON extracts the first complete JSON object from a string that
// may contain extra text. Models add explanations around the JSON despite
// instructions; this finds the object boundaries with brace matching that
// is aware of string literals and escapes.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // No JSON found, return as-is and let the parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // No complete JSON found
}

// ParseProviderResponse parses a model's extraction answer. Entries with
// an invalid confidence are skipped rather than failing the batch;
// unknown entity types are kept (they may be configured custom types and
// are filtered later against the allowed set). Only malformed JSON is an
// error.
func ParseProviderResponse(raw string) (*ProviderResult, error) {
	cleanJSON := extractJSON(raw)

	var result ProviderResult
	if err := json.Unmarshal([]byte(cleanJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	valid := result.Candidates[:0]
	for _, c := range result.Candidates {
		if c.Text == "" || c.Type == "" {
			continue
		}
		if c.Confidence < 0.0 || c.Confidence > 1.0 {
			log.Printf("extract: skipping candidate %q with invalid confidence %f", c.Text, c.Confidence)
			continue
		}
		valid = append(valid, c)
	}
	result.Candidates = valid

	validRels := result.Relations[:0]
	for _, r := range result.Relations {
		if r.From == "" || r.To == "" {
			continue
		}
		if !types.IsValidRelationType(r.Type) || r.Type == types.RelCoOccurs {
			log.Printf("extract: skipping relation %q→%q with unknown type %q", r.From, r.To, r.Type)
			continue
		}
		if r.Confidence < 0.0 || r.Confidence > 1.0 {
			continue
		}
		validRels = append(validRels, r)
	}
	result.Relations = validRels

	return &result, nil
}
