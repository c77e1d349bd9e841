package extract

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/JordanCoin/openfoia/internal/config"
	"github.com/JordanCoin/openfoia/pkg/types"
)

// PatternExtractorName identifies the deterministic extractor in mention
// provenance.
const PatternExtractorName = "pattern"

// Rule is one named pattern rule: matches of Pattern produce mentions of
// Type with a fixed confidence.
type Rule struct {
	Name       string
	Type       string
	Pattern    string
	Confidence float64
}

// builtinRules covers the surface forms of the built-in entity types.
// Confidences reflect how structured each form is: exact structured
// patterns score high, capitalization heuristics score low and rely on
// corroboration from other extractors.
var builtinRules = []Rule{
	{Name: "date-iso", Type: types.EntityTypeDate, Pattern: `\b\d{4}-\d{2}-\d{2}\b`, Confidence: 0.95},
	{Name: "date-written", Type: types.EntityTypeDate, Pattern: `\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`, Confidence: 0.9},
	{Name: "money-dollar", Type: types.EntityTypeMoney, Pattern: `\$\d[\d,]*(?:\.\d{2})?`, Confidence: 0.95},
	{Name: "email", Type: types.EntityTypeEmail, Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Confidence: 0.95},
	{Name: "phone-us", Type: types.EntityTypePhone, Pattern: `\(?\b\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`, Confidence: 0.9},
	{Name: "org-acronym", Type: types.EntityTypeOrganization, Pattern: `\b[A-Z]{2,6}\b`, Confidence: 0.6},
	{Name: "org-suffixed", Type: types.EntityTypeOrganization, Pattern: `\b[A-Z][A-Za-z&]*(?:\s+[A-Z][A-Za-z&]*)*\s+(?:Inc\.?|LLC|Corp\.?|Corporation|Company|Department|Agency|Bureau|Office|Commission|Division)\b`, Confidence: 0.8},
	{Name: "person-honorific", Type: types.EntityTypePerson, Pattern: `\b(?:Mr|Mrs|Ms|Dr|Prof|Hon)\.\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\b`, Confidence: 0.85},
	{Name: "person-initial", Type: types.EntityTypePerson, Pattern: `\b[A-Z]\.\s*[A-Z][a-z]+\b`, Confidence: 0.7},
	{Name: "person-capitalized", Type: types.EntityTypePerson, Pattern: `\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`, Confidence: 0.5},
	{Name: "location-city-state", Type: types.EntityTypeLocation, Pattern: `\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?,\s+[A-Z]{2}\b`, Confidence: 0.7},
	{Name: "document-id", Type: types.EntityTypeDocumentID, Pattern: `\b(?:FOIA|Case|File|Request|Ref)\s*(?:No\.?|Number|#)\s*[A-Z0-9][A-Za-z0-9-]{2,}\b`, Confidence: 0.9},
}

// compiledRule pairs a rule with its compiled pattern.
type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// PatternExtractor applies the built-in rules plus user-configured custom
// type rules. It runs synchronously, is always available, and never fails
// per document: malformed configured patterns fail fast at construction.
type PatternExtractor struct {
	rules []compiledRule
}

// NewPatternExtractor compiles the built-in rules and the custom type
// rules from configuration. A malformed custom pattern is a construction
// error, never a per-document one.
func NewPatternExtractor(custom []config.CustomType) (*PatternExtractor, error) {
	rules := make([]compiledRule, 0, len(builtinRules)+len(custom))

	for _, r := range builtinRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			// Built-in patterns are compile-tested; this is unreachable
			// unless the table itself is edited badly.
			return nil, fmt.Errorf("extract: built-in rule %q: %w", r.Name, err)
		}
		rules = append(rules, compiledRule{Rule: r, re: re})
	}

	for _, ct := range custom {
		re, err := regexp.Compile(ct.Pattern)
		if err != nil {
			return nil, fmt.Errorf("extract: custom type %q has a malformed pattern: %w", ct.Name, err)
		}
		rules = append(rules, compiledRule{
			Rule: Rule{Name: "custom-" + ct.Name, Type: ct.Name, Pattern: ct.Pattern, Confidence: ct.Confidence},
			re:   re,
		})
	}

	return &PatternExtractor{rules: rules}, nil
}

// Name implements Extractor.
func (p *PatternExtractor) Name() string { return PatternExtractorName }

// Extract scans the document text with every rule and emits one mention
// per match. Overlapping matches are left for the mention merger.
func (p *PatternExtractor) Extract(_ context.Context, doc *types.Document) (*Result, error) {
	var mentions []types.Mention

	for _, rule := range p.rules {
		for _, loc := range rule.re.FindAllStringIndex(doc.Text, -1) {
			mentions = append(mentions, types.Mention{
				Type:       rule.Type,
				Text:       doc.Text[loc[0]:loc[1]],
				Span:       types.Span{DocumentID: doc.ID, Start: loc[0], End: loc[1]},
				Confidence: rule.Confidence,
				Extractor:  PatternExtractorName,
			})
		}
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		if mentions[i].Span.Start != mentions[j].Span.Start {
			return mentions[i].Span.Start < mentions[j].Span.Start
		}
		return mentions[i].Span.End < mentions[j].Span.End
	})

	return &Result{Mentions: mentions}, nil
}

var _ Extractor = (*PatternExtractor)(nil)
