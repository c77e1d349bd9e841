package extract

import "strings"

// maxChunkChars bounds the text sent to the provider in one call. Long
// documents are split on paragraph boundaries so each prompt stays
// within typical model context limits.
const maxChunkChars = 8000

// textChunk is one provider-sized slice of the document text. start is
// the chunk's offset in the full text, so chunk-relative candidate
// offsets can be mapped back before anchoring.
type textChunk struct {
	start int
	text  string
}

// chunkText splits text into paragraph-aligned chunks of at most
// maxChars. Paragraph separators inside a chunk are preserved, so a
// chunk is always a verbatim slice of the input. A single paragraph
// longer than maxChars becomes its own oversized chunk rather than
// being split mid-sentence.
func chunkText(text string, maxChars int) []textChunk {
	if len(text) <= maxChars {
		return []textChunk{{start: 0, text: text}}
	}

	var chunks []textChunk
	curStart, curEnd := 0, 0
	pos := 0
	for {
		paraEnd := len(text)
		if next := strings.Index(text[pos:], "\n\n"); next >= 0 {
			paraEnd = pos + next
		}
		if curEnd > curStart && paraEnd-curStart > maxChars {
			chunks = append(chunks, textChunk{start: curStart, text: text[curStart:curEnd]})
			curStart = pos
		}
		curEnd = paraEnd
		if paraEnd == len(text) {
			break
		}
		pos = paraEnd + 2
	}
	if curEnd > curStart {
		chunks = append(chunks, textChunk{start: curStart, text: text[curStart:curEnd]})
	}
	return chunks
}
