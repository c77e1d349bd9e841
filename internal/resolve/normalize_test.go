package resolve

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Smith", "john smith"},
		{"Dr. John Smith", "john smith"},
		{"Mr. J. Smith", "j smith"},
		{"  Federal  Bureau of Investigation ", "federal bureau of investigation"},
		{"O'Brien, Patrick", "o brien patrick"},
		{"MS. JANE DOE", "jane doe"},
		{"$1,250,000.00", "1 250 000 00"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"john smith", "john smith", 1.0, 1.0},
		{"j smith", "john smith", 0.69, 0.71},
		{"smith john", "john smith", 1.0, 1.0}, // token set ignores order
		{"fbi", "cia", 0.0, 0.34},
		{"federal bureau of investigation", "bureau of investigation", 0.74, 1.0},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %.3f, want in [%.2f, %.2f]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"j smith", "john smith"},
		{"acme corp", "acme corporation"},
	}
	for _, p := range pairs {
		if a, b := Similarity(p[0], p[1]), Similarity(p[1], p[0]); a != b {
			t.Errorf("Similarity not symmetric for %q/%q: %.3f vs %.3f", p[0], p[1], a, b)
		}
	}
}
