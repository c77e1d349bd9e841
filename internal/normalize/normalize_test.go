package normalize

import (
	"errors"
	"testing"

	"github.com/JordanCoin/openfoia/pkg/types"
)

func twoPageRaw() RawDocument {
	return RawDocument{
		ID: "doc-1",
		Pages: []RawPage{
			{Number: 1, Text: "first page body", Regions: []RawRegion{{Start: 0, End: 5, X: 10, Y: 20, W: 100, H: 12}}},
			{Number: 2, Text: "second page"},
		},
	}
}

func TestNormalizeBuildsMonotonicStream(t *testing.T) {
	doc, err := Normalize(twoPageRaw())
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}

	want := "first page body\n\nsecond page"
	if doc.Text != want {
		t.Errorf("text = %q, want %q", doc.Text, want)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(doc.Pages))
	}
	if doc.Pages[0].Start != 0 || doc.Pages[0].End != 15 {
		t.Errorf("page 1 span = [%d,%d), want [0,15)", doc.Pages[0].Start, doc.Pages[0].End)
	}
	if doc.Pages[1].Start != 17 || doc.Pages[1].End != len(doc.Text) {
		t.Errorf("page 2 span = [%d,%d), want [17,%d)", doc.Pages[1].Start, doc.Pages[1].End, len(doc.Text))
	}
	if doc.Checksum == "" {
		t.Error("checksum was not computed")
	}

	// Region re-addressed to absolute offsets.
	r := doc.Pages[0].Regions[0]
	if r.Start != 0 || r.End != 5 || r.X != 10 {
		t.Errorf("region = %+v, want absolute [0,5) at x=10", r)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := twoPageRaw()
	a, err := Normalize(raw)
	if err != nil {
		t.Fatalf("first Normalize() failed: %v", err)
	}
	b, err := Normalize(raw)
	if err != nil {
		t.Fatalf("second Normalize() failed: %v", err)
	}

	if a.Text != b.Text || a.Checksum != b.Checksum {
		t.Error("re-normalizing identical input changed the text stream")
	}
	for i := range a.Pages {
		if a.Pages[i].Start != b.Pages[i].Start || a.Pages[i].End != b.Pages[i].End {
			t.Errorf("page %d offsets changed between runs", a.Pages[i].Number)
		}
	}
}

func TestNormalizeOrdersPagesByNumber(t *testing.T) {
	raw := RawDocument{
		ID: "doc-2",
		Pages: []RawPage{
			{Number: 2, Text: "second"},
			{Number: 1, Text: "first"},
		},
	}
	doc, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	if doc.Text != "first\n\nsecond" {
		t.Errorf("text = %q, pages were not reordered", doc.Text)
	}
}

func TestNormalizeRejectsCorruptLayout(t *testing.T) {
	tests := []struct {
		name string
		raw  RawDocument
	}{
		{"missing id", RawDocument{Pages: []RawPage{{Number: 1, Text: "x"}}}},
		{"no pages", RawDocument{ID: "doc-3"}},
		{"duplicate page numbers", RawDocument{ID: "doc-3", Pages: []RawPage{
			{Number: 1, Text: "a"}, {Number: 1, Text: "b"},
		}}},
		{"zero page number", RawDocument{ID: "doc-3", Pages: []RawPage{{Number: 0, Text: "a"}}}},
		{"region outside page text", RawDocument{ID: "doc-3", Pages: []RawPage{
			{Number: 1, Text: "ab", Regions: []RawRegion{{Start: 0, End: 10}}},
		}}},
		{"inverted region", RawDocument{ID: "doc-3", Pages: []RawPage{
			{Number: 1, Text: "abcdef", Regions: []RawRegion{{Start: 4, End: 2}}},
		}}},
		{"invalid utf-8 text", RawDocument{ID: "doc-3", Pages: []RawPage{
			{Number: 1, Text: "memo\xff\xfebody"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if err == nil {
				t.Fatal("Normalize() accepted corrupt input")
			}
			var nerr *Error
			if !errors.As(err, &nerr) {
				t.Errorf("error type = %T, want *normalize.Error", err)
			}
		})
	}
}

func TestNormalizedSpansResolveToPages(t *testing.T) {
	doc, err := Normalize(twoPageRaw())
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}

	span := types.Span{DocumentID: doc.ID, Start: 17, End: 23}
	if !doc.Contains(span) {
		t.Fatal("span within normalized text reported invalid")
	}
	page, _, err := doc.Locate(span.Start)
	if err != nil {
		t.Fatalf("Locate() failed: %v", err)
	}
	if page == nil || page.Number != 2 {
		t.Errorf("span start resolved to page %+v, want page 2", page)
	}
}
