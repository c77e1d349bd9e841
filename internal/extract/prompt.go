package extract

import (
	"fmt"
	"strings"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// buildExtractionPrompt renders the entity and relationship extraction
// prompt for one document's text. The model answers with the JSON shape
// ParseProviderResponse expects.
func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`Analyze this response document excerpt and extract all entities and relationships.

DOCUMENT TEXT:
%s

Extract the following entity types:
- PERSON: Names of individuals (include titles/roles if mentioned)
- ORG: Companies, agencies, departments, groups
- LOCATION: Addresses, cities, countries, facilities
- DATE: Specific dates or date ranges
- MONEY: Dollar amounts, budgets, costs
- DOCUMENT_ID: Case numbers, file numbers, reference IDs
- PHONE: Phone numbers
- EMAIL: Email addresses

For each entity, provide:
1. text: Exactly as it appears in the document
2. type: Entity type from above
3. start/end: Character offsets of the occurrence within DOCUMENT TEXT
4. confidence: 0.0-1.0 based on clarity

Also identify RELATIONSHIPS between entities, using only these types:
%s

Return only JSON:
{
  "entities": [
    {"text": "...", "type": "PERSON", "start": 0, "end": 10, "confidence": 0.9}
  ],
  "relationships": [
    {"from": "...", "to": "...", "type": "works_for", "evidence": "...", "confidence": 0.8}
  ]
}
`, text, "- "+strings.Join(directedRelationTypes(), "\n- "))
}

// directedRelationTypes lists the relation vocabulary the model may use;
// co_occurs is excluded because it is derived, never asserted.
func directedRelationTypes() []string {
	out := make([]string, 0, len(types.ValidRelationTypes))
	for _, t := range types.ValidRelationTypes {
		if t == types.RelCoOccurs {
			continue
		}
		out = append(out, t)
	}
	return out
}
