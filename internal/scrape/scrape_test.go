package scrape

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseListing(t *testing.T) {
	page := `<html><body>
<div class="card"><span id="project-7f2a0c1e-1111-4222-8333-944455556666-title">
   Physics  </span></div>
<div class="card"><span id="project-7f2a0c1e-1111-4222-8333-944455556666-title">Physics copy</span></div>
<div class="card"><span id="project-0b1c2d3e-aaaa-4bbb-8ccc-dddddddddddd-title">Q&amp;A notes</span></div>
<div class="card"><span id="project-11111111-2222-4333-8444-555555555555-title">ok</span></div>
<div class="card"><span id="project-NOTAUUID-title">Ignored</span></div>
</body></html>`
	want := []Notebook{
		{ID: "7f2a0c1e-1111-4222-8333-944455556666", Name: "Physics"},
		{ID: "0b1c2d3e-aaaa-4bbb-8ccc-dddddddddddd", Name: "Q&A notes"},
	}
	if diff := cmp.Diff(want, ParseListing(page)); diff != "" {
		t.Errorf("ParseListing mismatch (-want +got):\n%s", diff)
	}
}

func TestParseListingEmpty(t *testing.T) {
	if got := ParseListing("<html></html>"); len(got) != 0 {
		t.Errorf("ParseListing(empty) = %v", got)
	}
}
