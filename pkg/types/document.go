package types

import (
	"fmt"
	"sort"
	"time"
)

// Span is an offset range within a document's normalized text. It is the
// unit of provenance for every downstream claim: each mention and each
// piece of edge evidence carries at least one Span, and every Span can be
// resolved back to a page and layout region via Document.Locate.
type Span struct {
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// Length returns the number of characters the span covers.
func (s Span) Length() int {
	return s.End - s.Start
}

// Overlap returns the number of characters shared by both spans.
// Spans from different documents never overlap.
func (s Span) Overlap(o Span) int {
	if s.DocumentID != o.DocumentID {
		return 0
	}
	lo := s.Start
	if o.Start > lo {
		lo = o.Start
	}
	hi := s.End
	if o.End < hi {
		hi = o.End
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Region is a bounding region on a page, addressed both by its absolute
// character range in the normalized text and by page coordinates.
type Region struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Page maps a slice of the normalized text stream back to a source page.
// Start and End are absolute offsets; Regions are sorted by Start.
type Page struct {
	Number  int      `json:"number"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Regions []Region `json:"regions,omitempty"`
}

// Document is an immutable, normalized document: one canonical text stream
// with a monotonic offset space and page/region provenance. Documents are
// created once per ingested file and never mutated; a re-OCR'd file
// supersedes the old document (detected by checksum), it does not edit it.
type Document struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Pages      []Page    `json:"pages"`
	Checksum   string    `json:"checksum"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Contains reports whether the span's offsets are valid within the document.
func (d *Document) Contains(s Span) bool {
	return s.DocumentID == d.ID && s.Start >= 0 && s.End > s.Start && s.End <= len(d.Text)
}

// Locate resolves an absolute offset to its source page and, when the
// offset falls inside a layout region, that region. The region result is
// nil for offsets in inter-region whitespace or page separators.
func (d *Document) Locate(offset int) (*Page, *Region, error) {
	if offset < 0 || offset >= len(d.Text) {
		return nil, nil, fmt.Errorf("types: offset %d outside document %s (length %d)", offset, d.ID, len(d.Text))
	}

	i := sort.Search(len(d.Pages), func(i int) bool {
		return d.Pages[i].End > offset
	})
	if i >= len(d.Pages) || d.Pages[i].Start > offset {
		// Offset lands on a page separator.
		return nil, nil, nil
	}

	page := &d.Pages[i]
	for j := range page.Regions {
		r := &page.Regions[j]
		if offset >= r.Start && offset < r.End {
			return page, r, nil
		}
	}
	return page, nil, nil
}

// TextFor returns the literal text the span covers, or an empty string if
// the span does not belong to this document.
func (d *Document) TextFor(s Span) string {
	if !d.Contains(s) {
		return ""
	}
	return d.Text[s.Start:s.End]
}
