package resolve

import "strings"

// honorifics are stripped from the front of a name before matching.
var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true,
	"dr": true, "prof": true, "hon": true, "rev": true,
}

// NormalizeName canonicalizes a literal for matching: case-fold, strip
// honorifics and punctuation, collapse whitespace. The result is the only
// form the resolver compares; raw literals are preserved as aliases.
func NormalizeName(literal string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(literal) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for len(tokens) > 0 && honorifics[tokens[0]] {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}
