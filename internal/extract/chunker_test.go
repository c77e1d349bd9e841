package extract

import (
	"strings"
	"testing"
)

func TestChunkTextShortInputIsOneChunk(t *testing.T) {
	chunks := chunkText("one paragraph\n\nanother", 100)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].start != 0 || chunks[0].text != "one paragraph\n\nanother" {
		t.Errorf("chunk = %+v, want the whole input at offset 0", chunks[0])
	}
}

func TestChunkTextSplitsOnParagraphs(t *testing.T) {
	paras := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}
	text := strings.Join(paras, "\n\n")

	chunks := chunkText(text, 90)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %+v", len(chunks), chunks)
	}

	// Each chunk is a verbatim slice of the input at its stated offset.
	for _, c := range chunks {
		if text[c.start:c.start+len(c.text)] != c.text {
			t.Errorf("chunk at %d is not a slice of the input", c.start)
		}
	}
	if chunks[0].text != paras[0]+"\n\n"+paras[1] {
		t.Errorf("first chunk = %q, want the first two paragraphs", chunks[0].text)
	}
	if chunks[1].text != paras[2] {
		t.Errorf("second chunk = %q, want the last paragraph", chunks[1].text)
	}
	if chunks[1].start != 84 {
		t.Errorf("second chunk start = %d, want 84", chunks[1].start)
	}
}

func TestChunkTextOversizedParagraphStaysWhole(t *testing.T) {
	long := strings.Repeat("x", 200)
	text := "short\n\n" + long + "\n\ntail"

	chunks := chunkText(text, 100)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3: %+v", len(chunks), chunks)
	}
	if chunks[1].text != long {
		t.Errorf("oversized paragraph was split: %q", chunks[1].text)
	}
}
