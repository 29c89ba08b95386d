package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tmc/nlmflow/internal/batchexecute"
	"github.com/tmc/nlmflow/internal/sources"
	"github.com/tmc/nlmflow/internal/studio"
)

const nbID = "7f2a0c1e-1111-4222-8333-944455556666"

func project(title, id string, sourceIDs ...string) []interface{} {
	var srcs []interface{}
	for _, s := range sourceIDs {
		srcs = append(srcs, []interface{}{[]interface{}{s}, "src " + s})
	}
	return []interface{}{title, srcs, id, "📘", nil, []interface{}{[]interface{}{1700000000, 5}}}
}

func TestListNotebooks(t *testing.T) {
	f := newFakeService(t)
	f.handle("wXbhsf", func(args []interface{}) interface{} {
		return []interface{}{[]interface{}{
			project("Physics", nbID, "s1", "s2"),
			project("Physics", nbID),
			[]interface{}{"no id"},
			project("Chemistry", "b2"),
		}}
	})
	got, err := f.client().ListNotebooks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []Notebook{
		{
			ID: nbID, Title: "Physics", Emoji: "📘", SourcesCount: 2,
			Sources:   []Source{{"s1", "src s1"}, {"s2", "src s2"}},
			CreatedAt: time.Unix(1700000000, 5).UTC(),
		},
		{ID: "b2", Title: "Chemistry", Emoji: "📘", CreatedAt: time.Unix(1700000000, 5).UTC()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListNotebooks mismatch (-want +got):\n%s", diff)
	}
	if call := f.lastCall(); call.SourcePath != "/" {
		t.Errorf("source-path = %q", call.SourcePath)
	}
}

func TestListNotebooksEmpty(t *testing.T) {
	f := newFakeService(t)
	f.handle("wXbhsf", func(args []interface{}) interface{} { return []int{16} })
	got, err := f.client().ListNotebooks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListNotebooks = %#v, want empty", got)
	}
}

func TestListing(t *testing.T) {
	f := newFakeService(t)
	f.handle("wXbhsf", func(args []interface{}) interface{} {
		return []interface{}{[]interface{}{project("Physics", nbID, "s1")}}
	})
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries, err := f.client().Listing(func() time.Time { return now })(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != nbID || entries[0].Name != "Physics" || entries[0].SourcesCount != 1 {
		t.Errorf("Listing = %+v", entries)
	}
}

func TestCreateGetDeleteNotebook(t *testing.T) {
	f := newFakeService(t)
	f.handle("CCqFvf", func(args []interface{}) interface{} {
		return project(args[0].(string), nbID)
	})
	f.handle("rLM1Ne", func(args []interface{}) interface{} {
		if args[0] == "missing" {
			return []interface{}{nil}
		}
		return []interface{}{project("Physics", nbID, "s1")}
	})
	f.handle("WWINqb", func(args []interface{}) interface{} { return []interface{}{} })

	c := f.client()
	ctx := context.Background()
	nb, err := c.CreateNotebook(ctx, "Physics")
	if err != nil {
		t.Fatal(err)
	}
	if nb.ID != nbID || nb.Title != "Physics" {
		t.Errorf("CreateNotebook = %+v", nb)
	}

	srcs, err := c.ListSources(ctx, nbID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Source{{"s1", "src s1"}}, srcs); diff != "" {
		t.Errorf("ListSources mismatch (-want +got):\n%s", diff)
	}
	if call := f.lastCall(); call.SourcePath != "/notebook/"+nbID {
		t.Errorf("source-path = %q", call.SourcePath)
	}

	if _, err := c.GetNotebook(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetNotebook(missing) error = %v, want ErrNotFound", err)
	}

	if err := c.DeleteNotebook(ctx, nbID); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]interface{}{[]interface{}{nbID}, []interface{}{2.0}}, f.lastCall().Args); diff != "" {
		t.Errorf("delete args mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateNotebookRequiresTitle(t *testing.T) {
	if _, err := New("", "").CreateNotebook(context.Background(), ""); err == nil {
		t.Error("CreateNotebook(\"\") succeeded")
	}
}

func TestRemoteErrors(t *testing.T) {
	f := newFakeService(t)
	f.handle("wXbhsf", func(args []interface{}) interface{} { return []int{277566} })
	_, err := f.client().ListNotebooks(context.Background())
	if !errors.Is(err, ErrRemoteService) {
		t.Errorf("error = %v, want ErrRemoteService", err)
	}
	if !errors.Is(err, batchexecute.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized in chain", err)
	}
	var rse *RemoteServiceError
	if !errors.As(err, &rse) || rse.Op != "list notebooks" {
		t.Errorf("errors.As RemoteServiceError = %v", rse)
	}
}

func TestAddSource(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "notes.md")
	os.WriteFile(textFile, []byte("# heading\nplain text"), 0o644)
	pdfFile := filepath.Join(dir, "paper.pdf")
	os.WriteFile(pdfFile, []byte("%PDF-1.4 binary"), 0o644)

	tests := []struct {
		name string
		src  sources.Source
		want []interface{}
	}{
		{
			"text",
			sources.Source{Kind: sources.Text, Value: "some notes"},
			[]interface{}{nil, []interface{}{"some notes", "some notes"}, nil, 2.0},
		},
		{
			"url",
			sources.Source{Kind: sources.Link, Value: "https://example.com"},
			[]interface{}{nil, nil, []interface{}{"https://example.com"}},
		},
		{
			"drive",
			sources.Source{Kind: sources.Drive, Value: "https://docs.google.com/document/d/abc/edit", ID: "abc"},
			[]interface{}{nil, nil, []interface{}{"https://docs.google.com/document/d/abc/edit"}},
		},
		{
			"youtube",
			sources.Source{Kind: sources.Video, Value: "https://youtu.be/xyz", ID: "xyz"},
			[]interface{}{nil, nil, "xyz", nil, 4.0},
		},
		{
			"text file",
			sources.Source{Kind: sources.File, Value: textFile},
			[]interface{}{nil, []interface{}{"notes.md", "# heading\nplain text"}, nil, 2.0},
		},
		{
			"binary file",
			sources.Source{Kind: sources.File, Value: pdfFile},
			[]interface{}{"JVBERi0xLjQgYmluYXJ5", "paper.pdf", "application/pdf", "base64"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t)
			f.handle("izAoDd", func(args []interface{}) interface{} {
				return []interface{}{[]interface{}{[]interface{}{[]interface{}{"src-1"}, "title"}}}
			})
			id, err := f.client().AddSource(context.Background(), nbID, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if id != "src-1" {
				t.Errorf("id = %q", id)
			}
			args := f.lastCall().Args
			if args[1] != nbID {
				t.Errorf("notebook arg = %v", args[1])
			}
			got := args[0].([]interface{})[0]
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddSourceMissingFile(t *testing.T) {
	_, err := New("", "").AddSource(context.Background(), nbID, sources.Source{Kind: sources.File, Value: "/does/not/exist.pdf"})
	if err == nil {
		t.Fatal("AddSource succeeded for a missing file")
	}
}

func TestAsk(t *testing.T) {
	f := newFakeService(t)
	f.handle("BD", func(args []interface{}) interface{} {
		return []interface{}{[]interface{}{
			"Entropy increases.",
			nil,
			[]interface{}{"conv-9", 2},
			nil,
			[]interface{}{
				[]interface{}{1, "second law", []interface{}{[]interface{}{"s1"}}},
				[]interface{}{"bad"},
			},
		}}
	})
	c := f.client()
	a, err := c.Ask(context.Background(), nbID, "What about entropy?", AskOptions{SourceIDs: []string{"s1"}, ConversationID: "conv-1"})
	if err != nil {
		t.Fatal(err)
	}
	want := Answer{
		Text:           "Entropy increases.",
		ConversationID: "conv-9",
		Turn:           2,
		References:     []Reference{{CitationNumber: 1, CitedText: "second law", SourceID: "s1"}},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("Ask mismatch (-want +got):\n%s", diff)
	}
	args := f.lastCall().Args
	if args[1] != "What about entropy?" || args[4] != "conv-1" {
		t.Errorf("ask args = %v", args)
	}

	if _, err := c.Ask(context.Background(), nbID, "  ", AskOptions{}); err == nil {
		t.Error("Ask with empty question succeeded")
	}
}

func TestChatHistory(t *testing.T) {
	f := newFakeService(t)
	f.handle("hPTbtc", func(args []interface{}) interface{} {
		return []interface{}{
			[]interface{}{
				[]interface{}{"What is entropy?", 1},
				[]interface{}{"A measure of disorder.", 2},
				[]interface{}{nil, 2},
			},
			"conv-3",
		}
	})
	h, err := f.client().ChatHistory(context.Background(), nbID)
	if err != nil {
		t.Fatal(err)
	}
	want := ChatHistory{
		ConversationID: "conv-3",
		Turns: []ChatTurn{
			{Role: "user", Text: "What is entropy?"},
			{Role: "model", Text: "A measure of disorder."},
		},
	}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("ChatHistory mismatch (-want +got):\n%s", diff)
	}
	if call := f.lastCall(); call.Args[2] != nbID || call.SourcePath != "/notebook/"+nbID {
		t.Errorf("history call = %+v", call)
	}
}

func TestConfigureChat(t *testing.T) {
	tests := []struct {
		name     string
		in       ChatConfig
		want     ChatConfig
		settings []interface{}
	}{
		{
			name:     "defaults",
			want:     ChatConfig{Goal: "default", Length: "default"},
			settings: []interface{}{[]interface{}{1.0}, []interface{}{1.0}},
		},
		{
			name:     "learning shorter",
			in:       ChatConfig{Goal: "Learning", Length: "shorter", Prompt: "ignored"},
			want:     ChatConfig{Goal: "learning", Length: "shorter"},
			settings: []interface{}{[]interface{}{3.0}, []interface{}{5.0}},
		},
		{
			name:     "prompt selects custom",
			in:       ChatConfig{Length: "verbose", Prompt: "Answer like a tutor"},
			want:     ChatConfig{Goal: "custom", Length: "default", Prompt: "Answer like a tutor"},
			settings: []interface{}{[]interface{}{2.0, "Answer like a tutor"}, []interface{}{1.0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t)
			f.handle("s0tc2d", func(args []interface{}) interface{} { return []interface{}{} })
			got, err := f.client().ConfigureChat(context.Background(), nbID, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ConfigureChat mismatch (-want +got):\n%s", diff)
			}
			wantArgs := []interface{}{nbID, []interface{}{[]interface{}{nil, nil, nil, nil, nil, nil, nil, tt.settings}}}
			if diff := cmp.Diff(wantArgs, f.lastCall().Args); diff != "" {
				t.Errorf("configure args mismatch (-want +got):\n%s", diff)
			}
		})
	}

	f := newFakeService(t)
	_, err := f.client().ConfigureChat(context.Background(), nbID, ChatConfig{Goal: "custom"})
	if !errors.Is(err, studio.ErrValidation) {
		t.Errorf("custom goal without prompt: err = %v, want ErrValidation", err)
	}
}

func TestSubmitAndPoll(t *testing.T) {
	f := newFakeService(t)
	polls := 0
	f.handle("xpWGLf", func(args []interface{}) interface{} {
		return []interface{}{[]interface{}{"art-1", "Quiz", 4, nil, statusInProgress}}
	})
	f.handle("BnLyuf", func(args []interface{}) interface{} {
		polls++
		if polls < 2 {
			return []interface{}{[]interface{}{"art-1", "Quiz", 4, nil, statusInProgress}}
		}
		return []interface{}{[]interface{}{"art-1", "Quiz", 4, nil, statusFailed, "quota"}}
	})
	c := f.client()
	ctx := context.Background()
	p, _ := studio.Build(studio.Quiz, studio.Options{SourceIDs: []string{"s1"}, Difficulty: "hard", Language: "fr"})
	sub, err := c.SubmitGeneration(ctx, nbID, p)
	if err != nil {
		t.Fatal(err)
	}
	if sub != (studio.Submission{TaskID: "art-1"}) {
		t.Errorf("Submission = %+v", sub)
	}
	spec := f.lastCall().Args[2].([]interface{})
	wantSpec := []interface{}{nil, nil, 4.0,
		[]interface{}{[]interface{}{[]interface{}{"s1"}}},
		[]interface{}{nil, "hard", "standard"},
	}
	if diff := cmp.Diff(wantSpec, spec); diff != "" {
		t.Errorf("artifact spec mismatch (-want +got):\n%s", diff)
	}

	st, err := c.PollGeneration(ctx, nbID, "art-1")
	if err != nil || st.Phase != studio.PhaseInProgress {
		t.Errorf("first poll = %+v, %v", st, err)
	}
	st, err = c.PollGeneration(ctx, nbID, "art-1")
	if err != nil || st.Phase != studio.PhaseFailed || st.Message != "quota" {
		t.Errorf("second poll = %+v, %v", st, err)
	}
}

func TestSubmitMindMap(t *testing.T) {
	f := newFakeService(t)
	f.handle("uK8f7c", func(args []interface{}) interface{} {
		return []interface{}{[]interface{}{"mm-1"}}
	})
	p, _ := studio.Build(studio.MindMap, studio.Options{})
	sub, err := f.client().SubmitGeneration(context.Background(), nbID, p)
	if err != nil {
		t.Fatal(err)
	}
	if sub != (studio.Submission{TaskID: "mm-1", Complete: true}) {
		t.Errorf("Submission = %+v", sub)
	}
	if diff := cmp.Diff([]interface{}{nbID, []interface{}{}}, f.lastCall().Args); diff != "" {
		t.Errorf("mind map args mismatch (-want +got):\n%s", diff)
	}
}

func TestListArtifactsPages(t *testing.T) {
	f := newFakeService(t)
	f.handle("LfTXoe", func(args []interface{}) interface{} {
		if args[2] == "" {
			return []interface{}{[]interface{}{[]interface{}{"a1", "Audio", 1, nil, statusComplete}}, "next"}
		}
		return []interface{}{[]interface{}{[]interface{}{"a2", "Table", 9, nil, statusInProgress}}}
	})
	got, err := f.client().ListArtifacts(context.Background(), nbID)
	if err != nil {
		t.Fatal(err)
	}
	want := []studio.Artifact{
		{ID: "a1", Type: studio.Audio, Title: "Audio", Phase: studio.PhaseComplete},
		{ID: "a2", Type: studio.DataTable, Title: "Table", Phase: studio.PhaseInProgress},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListArtifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteArtifact(t *testing.T) {
	f := newFakeService(t)
	f.handle("WxBZtb", func(args []interface{}) interface{} { return []interface{}{} })
	if err := f.client().DeleteArtifact(context.Background(), nbID, "a1"); err != nil {
		t.Fatal(err)
	}
	call := f.lastCall()
	if diff := cmp.Diff([]interface{}{[]interface{}{2.0}, "a1"}, call.Args); diff != "" {
		t.Errorf("delete args mismatch (-want +got):\n%s", diff)
	}
	if call.SourcePath != "/notebook/"+nbID {
		t.Errorf("source-path = %q", call.SourcePath)
	}
}

func TestDownloadArtifact(t *testing.T) {
	var gotCookie string
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("cookie")
		fmt.Fprint(w, "mp3-bytes")
	}))
	defer files.Close()

	f := newFakeService(t)
	f.handle("BnLyuf", func(args []interface{}) interface{} {
		switch args[0] {
		case "audio":
			return []interface{}{[]interface{}{"audio", "A", 1, nil, statusComplete, nil, files.URL + "/a.mp3"}}
		case "quiz":
			format := "json"
			if len(args) > 1 {
				format = args[1].(string)
			}
			return []interface{}{[]interface{}{"quiz", "Q", 4, nil, statusComplete, nil, nil, "quiz as " + format}}
		default:
			return []interface{}{[]interface{}{"busy", "B", 3, nil, statusInProgress}}
		}
	})
	c := f.client()
	ctx := context.Background()
	dir := t.TempDir()

	dest := filepath.Join(dir, "out", "7f2a0c1e_audio.mp3")
	got, err := c.DownloadArtifact(ctx, nbID, "audio", studio.Audio, dest)
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(got); string(b) != "mp3-bytes" {
		t.Errorf("audio content = %q", b)
	}
	if !strings.Contains(gotCookie, "SID=s") {
		t.Errorf("download cookie = %q", gotCookie)
	}

	md := filepath.Join(dir, "quiz.md")
	if _, err := c.DownloadArtifact(ctx, nbID, "quiz", studio.Quiz, md); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(md); string(b) != "quiz as markdown" {
		t.Errorf("quiz content = %q", b)
	}

	if _, err := c.DownloadArtifact(ctx, nbID, "busy", studio.Video, filepath.Join(dir, "v.mp4")); err == nil {
		t.Error("download of an in-progress artifact succeeded")
	}
	if _, err := os.Stat(filepath.Join(dir, "v.mp4")); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestDownloadFormat(t *testing.T) {
	tests := []struct {
		t    studio.Type
		dest string
		want string
	}{
		{studio.Quiz, "a.json", "json"},
		{studio.Quiz, "a.md", "markdown"},
		{studio.Flashcards, "a.HTML", "html"},
		{studio.Audio, "a.md", ""},
	}
	for _, tt := range tests {
		if got := downloadFormat(tt.t, tt.dest); got != tt.want {
			t.Errorf("downloadFormat(%s, %q) = %q, want %q", tt.t, tt.dest, got, tt.want)
		}
	}
}
