package sources

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetect(t *testing.T) {
	long := strings.Repeat("word ", 60)
	longPath := "/data/" + strings.Repeat("nested/", 30) + "notes"
	d := Detector{
		Exists: func(p string) bool {
			return p == "notes/existing" || p == "/home/me/papers/draft" || p == longPath
		},
		HomeDir: "/home/me",
	}
	tests := []struct {
		in   string
		want Source
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", Source{Kind: Video, Value: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", ID: "dQw4w9WgXcQ"}},
		{"https://youtu.be/dQw4w9WgXcQ", Source{Kind: Video, Value: "https://youtu.be/dQw4w9WgXcQ", ID: "dQw4w9WgXcQ"}},
		{"youtube.com/shorts/abc123", Source{Kind: Video, Value: "youtube.com/shorts/abc123", ID: "abc123"}},
		{"https://drive.google.com/file/d/1AbC_x-9/view", Source{Kind: Drive, Value: "https://drive.google.com/file/d/1AbC_x-9/view", ID: "1AbC_x-9"}},
		{"docs.google.com/open?id=XYZ", Source{Kind: Drive, Value: "https://docs.google.com/open?id=XYZ", ID: "XYZ"}},
		{"https://go.dev/doc", Source{Kind: Link, Value: "https://go.dev/doc"}},
		{"go.dev/doc", Source{Kind: Link, Value: "https://go.dev/doc"}},
		{"paper.pdf", Source{Kind: File, Value: "paper.pdf", Title: "paper.pdf"}},
		{"notes/existing", Source{Kind: File, Value: "notes/existing", Title: "existing"}},
		{"~/papers/draft", Source{Kind: File, Value: "/home/me/papers/draft", Title: "draft"}},
		{"~/paper.pdf", Source{Kind: File, Value: "/home/me/paper.pdf", Title: "paper.pdf"}},
		{longPath, Source{Kind: File, Value: longPath, Title: "notes"}},
		{"Newton's laws of motion", Source{Kind: Text, Value: "Newton's laws of motion", Title: "Newton's laws of motion"}},
		{"A sentence. Another one.", Source{Kind: Text, Value: "A sentence. Another one.", Title: "A sentence. Another one."}},
	}
	for _, tt := range tests {
		got := d.Detect(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Detect(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}

	got := d.Detect(long + "the end.")
	if got.Kind != Text {
		t.Errorf("Detect(long text) kind = %v, want text", got.Kind)
	}
	if !strings.HasSuffix(got.Title, "...") || len(got.Title) != 53 {
		t.Errorf("long text title = %q", got.Title)
	}
}

func TestKindString(t *testing.T) {
	want := map[Kind]string{Text: "text", Video: "youtube", Drive: "drive", Link: "url", File: "file"}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), s)
		}
	}
}
