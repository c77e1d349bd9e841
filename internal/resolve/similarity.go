package resolve

import "strings"

// Similarity scores two normalized names in [0,1]. It is the maximum of
// token-overlap Jaccard and a normalized Levenshtein ratio: Jaccard
// handles reordered or partially shared multi-token names, the edit
// ratio handles misspellings and abbreviated forms.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	j := tokenJaccard(a, b)
	l := levenshteinRatio(a, b)
	if j > l {
		return j
	}
	return l
}

// tokenJaccard is |A∩B| / |A∪B| over the names' token sets.
func tokenJaccard(a, b string) float64 {
	setA := map[string]bool{}
	for _, t := range strings.Fields(a) {
		setA[t] = true
	}
	setB := map[string]bool{}
	for _, t := range strings.Fields(b) {
		setB[t] = true
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// levenshteinRatio is 1 - editDistance/maxLen.
func levenshteinRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes edit distance with a rolling single-row table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur := prev[0]
		prev[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min3(prev[j]+1, prev[j-1]+1, cur+cost)
			cur = prev[j]
			prev[j] = next
		}
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
