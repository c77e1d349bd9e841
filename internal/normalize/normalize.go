// Package normalize converts raw OCR output into a canonical document:
// one text stream with a monotonic offset space and a reverse mapping from
// offset to page and layout region. Normalization is a pure function of
// its input, so re-normalizing identical input yields identical offsets
// and downstream spans stay valid across re-runs.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JordanCoin/openfoia/pkg/types"
)

// pageSeparator joins consecutive pages in the canonical stream. It is
// part of the offset contract and must never change for stored documents.
const pageSeparator = "\n\n"

// RawDocument is the OCR collaborator's output for one ingested file:
// page texts plus per-page layout metadata. The engine does not perform
// OCR itself.
type RawDocument struct {
	ID    string    `json:"id"`
	Pages []RawPage `json:"pages"`
}

// RawPage is one OCR'd page: its text and the regions the OCR engine
// recognized, addressed by character ranges within the page text.
type RawPage struct {
	Number  int         `json:"number"`
	Text    string      `json:"text"`
	Regions []RawRegion `json:"regions,omitempty"`
}

// RawRegion is a bounding region over a character range of the page text.
type RawRegion struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Error reports that a document's page ordering or offset mapping could
// not be constructed. The document is excluded from extraction; other
// documents are unaffected.
type Error struct {
	DocumentID string
	Reason     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize: document %s: %s", e.DocumentID, e.Reason)
}

// Normalize builds the canonical document for raw OCR output. Pages are
// ordered by page number and joined with a fixed separator; regions are
// re-addressed from page-relative to absolute offsets.
func Normalize(raw RawDocument) (*types.Document, error) {
	if raw.ID == "" {
		return nil, &Error{DocumentID: "(empty)", Reason: "missing document id"}
	}
	if len(raw.Pages) == 0 {
		return nil, &Error{DocumentID: raw.ID, Reason: "document has no pages"}
	}

	pages := make([]RawPage, len(raw.Pages))
	copy(pages, raw.Pages)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	for i, p := range pages {
		if p.Number < 1 {
			return nil, &Error{DocumentID: raw.ID, Reason: fmt.Sprintf("invalid page number %d", p.Number)}
		}
		if i > 0 && pages[i-1].Number == p.Number {
			return nil, &Error{DocumentID: raw.ID, Reason: fmt.Sprintf("duplicate page number %d", p.Number)}
		}
		if !utf8.ValidString(p.Text) {
			return nil, &Error{DocumentID: raw.ID, Reason: fmt.Sprintf("page %d text is not valid UTF-8", p.Number)}
		}
	}

	var b strings.Builder
	outPages := make([]types.Page, 0, len(pages))

	for i, p := range pages {
		if i > 0 {
			b.WriteString(pageSeparator)
		}
		start := b.Len()
		b.WriteString(p.Text)
		end := b.Len()

		page := types.Page{Number: p.Number, Start: start, End: end}
		for _, r := range p.Regions {
			if r.Start < 0 || r.End <= r.Start || r.End > len(p.Text) {
				return nil, &Error{
					DocumentID: raw.ID,
					Reason:     fmt.Sprintf("page %d region [%d,%d) outside page text (length %d)", p.Number, r.Start, r.End, len(p.Text)),
				}
			}
			page.Regions = append(page.Regions, types.Region{
				Start: start + r.Start,
				End:   start + r.End,
				X:     r.X, Y: r.Y, W: r.W, H: r.H,
			})
		}
		sort.Slice(page.Regions, func(a, b int) bool { return page.Regions[a].Start < page.Regions[b].Start })
		outPages = append(outPages, page)
	}

	text := b.String()
	sum := sha256.Sum256([]byte(text))

	return &types.Document{
		ID:         raw.ID,
		Text:       text,
		Pages:      outPages,
		Checksum:   hex.EncodeToString(sum[:]),
		IngestedAt: time.Now().UTC(),
	}, nil
}
