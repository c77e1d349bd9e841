package types

import "testing"

func testDoc() *Document {
	// "page one text" (0-13), separator "\n\n" (13-15), "page two" (15-23)
	return &Document{
		ID:   "doc-1",
		Text: "page one text\n\npage two",
		Pages: []Page{
			{Number: 1, Start: 0, End: 13, Regions: []Region{{Start: 0, End: 8}, {Start: 9, End: 13}}},
			{Number: 2, Start: 15, End: 23},
		},
	}
}

func TestSpanOverlap(t *testing.T) {
	a := Span{DocumentID: "doc-1", Start: 0, End: 10}
	tests := []struct {
		name string
		b    Span
		want int
	}{
		{"identical", Span{DocumentID: "doc-1", Start: 0, End: 10}, 10},
		{"partial", Span{DocumentID: "doc-1", Start: 5, End: 15}, 5},
		{"disjoint", Span{DocumentID: "doc-1", Start: 10, End: 20}, 0},
		{"contained", Span{DocumentID: "doc-1", Start: 2, End: 4}, 2},
		{"other document", Span{DocumentID: "doc-2", Start: 0, End: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlap(tt.b); got != tt.want {
				t.Errorf("Overlap() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocumentContains(t *testing.T) {
	d := testDoc()

	if !d.Contains(Span{DocumentID: "doc-1", Start: 0, End: 5}) {
		t.Error("expected span within text to be contained")
	}
	if d.Contains(Span{DocumentID: "doc-1", Start: 0, End: len(d.Text) + 1}) {
		t.Error("span past end of text must not be contained")
	}
	if d.Contains(Span{DocumentID: "doc-1", Start: 5, End: 5}) {
		t.Error("empty span must not be contained")
	}
	if d.Contains(Span{DocumentID: "doc-2", Start: 0, End: 5}) {
		t.Error("span from another document must not be contained")
	}
}

func TestDocumentLocate(t *testing.T) {
	d := testDoc()

	page, region, err := d.Locate(3)
	if err != nil {
		t.Fatalf("Locate(3) failed: %v", err)
	}
	if page == nil || page.Number != 1 {
		t.Fatalf("Locate(3) page = %+v, want page 1", page)
	}
	if region == nil || region.Start != 0 || region.End != 8 {
		t.Errorf("Locate(3) region = %+v, want [0,8)", region)
	}

	// Between regions on a page: page resolves, region is nil.
	page, region, err = d.Locate(8)
	if err != nil {
		t.Fatalf("Locate(8) failed: %v", err)
	}
	if page == nil || page.Number != 1 {
		t.Fatalf("Locate(8) page = %+v, want page 1", page)
	}
	if region != nil {
		t.Errorf("Locate(8) region = %+v, want nil", region)
	}

	// Page separator: no page, no region, no error.
	page, _, err = d.Locate(14)
	if err != nil {
		t.Fatalf("Locate(14) failed: %v", err)
	}
	if page != nil {
		t.Errorf("Locate(14) page = %+v, want nil (separator)", page)
	}

	page, _, err = d.Locate(16)
	if err != nil {
		t.Fatalf("Locate(16) failed: %v", err)
	}
	if page == nil || page.Number != 2 {
		t.Errorf("Locate(16) page = %+v, want page 2", page)
	}

	if _, _, err := d.Locate(len(d.Text)); err == nil {
		t.Error("Locate past end of text should fail")
	}
	if _, _, err := d.Locate(-1); err == nil {
		t.Error("Locate(-1) should fail")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       ConfidenceLevel
	}{
		{0.95, ConfidenceConfirmed},
		{0.9, ConfidenceConfirmed},
		{0.75, ConfidenceProbable},
		{0.5, ConfidencePossible},
		{0.1, ConfidenceUnresolved},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.confidence); got != tt.want {
			t.Errorf("LevelFor(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestHasAlias(t *testing.T) {
	e := &Entity{Name: "John Smith", Aliases: []string{"J. Smith"}}
	if !e.HasAlias("John Smith") {
		t.Error("canonical name should count as a known literal")
	}
	if !e.HasAlias("J. Smith") {
		t.Error("alias should be known")
	}
	if e.HasAlias("Jane Smith") {
		t.Error("unknown literal reported as alias")
	}
}
