package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/tmc/nlmflow/internal/api"
	"github.com/tmc/nlmflow/internal/generation"
	"github.com/tmc/nlmflow/internal/library"
	"github.com/tmc/nlmflow/internal/scrape"
	"github.com/tmc/nlmflow/internal/sources"
	"github.com/tmc/nlmflow/internal/studio"
)

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 4, ' ', 0)
}

// confirm asks a yes/no question on a terminal. Without a terminal the
// answer is no, so -f is needed in scripts.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N] ", prompt)
	var response string
	fmt.Scanln(&response)
	return strings.HasPrefix(strings.ToLower(response), "y")
}

// Notebook operations
func list(ctx context.Context, a *app, asJSON bool) error {
	lib, err := a.library(ctx)
	if err != nil {
		return err
	}
	entries := lib.Entries()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No notebooks cached. Run 'nlmflow sync' to fetch them.")
	}
	w := newTabWriter()
	fmt.Fprintln(w, "ID\tNAME\tSOURCES\tUSES\tLAST USED")
	for _, e := range entries {
		mark := " "
		if e.ID == lib.ActiveID {
			mark = "*"
		}
		lastUsed := "-"
		if e.LastUsed != nil {
			lastUsed = e.LastUsed.String()
		}
		fmt.Fprintf(w, "%s%s\t%s\t%d\t%d\t%s\n", mark, e.ID, e.Name, e.SourcesCount, e.UseCount, lastUsed)
	}
	return w.Flush()
}

func syncLibrary(ctx context.Context, a *app, useScrape bool) error {
	listing := a.remote().Listing(time.Now)
	if useScrape {
		s := &scrape.Scraper{
			Creds:    a.credentials(),
			ExecPath: browserPath(),
			Logger:   a.logger,
		}
		listing = s.Listing(time.Now)
		fmt.Fprintln(os.Stderr, "nlmflow: scraping notebook list in a browser...")
	}
	lib, d, err := a.store.Sync(ctx, listing)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	fmt.Printf("%d notebooks: %d added, %d updated, %d removed\n", len(lib.Notebooks), d.Added, d.Updated, d.Removed)
	return nil
}

func create(ctx context.Context, a *app, name string) error {
	nb, err := a.remote().CreateNotebook(ctx, name)
	if err != nil {
		return err
	}
	now := time.Now()
	if _, err := a.store.Update(func(lib *library.Library) error {
		lib.Upsert(nb.Entry(now))
		return lib.Activate(nb.ID, now)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "nlmflow: warning: could not record notebook: %v\n", err)
	}
	fmt.Println(nb.ID)
	return nil
}

func remove(ctx context.Context, a *app, ref string, force bool) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if !force && !confirm(fmt.Sprintf("Are you sure you want to delete notebook %s?", id)) {
		return fmt.Errorf("operation cancelled")
	}
	if err := a.remote().DeleteNotebook(ctx, id); err != nil {
		return err
	}
	if _, err := a.store.Update(func(lib *library.Library) error {
		lib.Remove(id)
		return nil
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Deleted notebook %s\n", id)
	return nil
}

func get(ctx context.Context, a *app, ref string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	nb, err := a.remote().GetNotebook(ctx, id)
	if err != nil {
		return err
	}
	w := newTabWriter()
	fmt.Fprintf(w, "ID:\t%s\n", nb.ID)
	fmt.Fprintf(w, "Title:\t%s\n", strings.TrimSpace(nb.Emoji+" "+nb.Title))
	fmt.Fprintf(w, "Sources:\t%d\n", len(nb.Sources))
	if !nb.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:\t%s\n", nb.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "URL:\t%s\n", library.NewEntry(nb.ID, nb.Title, 0, time.Now()).URL())
	return w.Flush()
}

func activate(ctx context.Context, a *app, ref string) error {
	var name, id string
	_, err := a.store.Update(func(lib *library.Library) error {
		var err error
		if id, err = library.ResolveOrActive(ref, lib); err != nil {
			return err
		}
		e, ok := lib.Lookup(id)
		if !ok {
			return &library.NotFoundError{Ref: ref}
		}
		name = e.Name
		return lib.Activate(id, time.Now())
	})
	if err != nil {
		return err
	}
	fmt.Printf("Active notebook: %s (%s)\n", name, id)
	return nil
}

// Source operations
func listSources(ctx context.Context, a *app, ref string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	srcs, err := a.remote().ListSources(ctx, id)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	w := newTabWriter()
	fmt.Fprintln(w, "ID\tTITLE")
	for _, s := range srcs {
		fmt.Fprintf(w, "%s\t%s\n", s.ID, strings.TrimSpace(s.Title))
	}
	return w.Flush()
}

func readSource(input string, stdin io.Reader) (sources.Source, error) {
	switch input {
	case "-":
		fmt.Fprintln(os.Stderr, "Reading from stdin...")
		data, err := io.ReadAll(stdin)
		if err != nil {
			return sources.Source{}, fmt.Errorf("read stdin: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return sources.Source{}, fmt.Errorf("empty input on stdin")
		}
		return sources.Source{Kind: sources.Text, Value: text, Title: "Pasted Text"}, nil
	case "":
		return sources.Source{}, fmt.Errorf("input required (file, URL, text, or '-' for stdin)")
	}
	return sources.Detect(input), nil
}

func addSource(ctx context.Context, a *app, ref, input string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	src, err := readSource(input, os.Stdin)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Adding %s source...\n", src.Kind)
	sourceID, err := a.remote().AddSource(ctx, id, src)
	if err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	fmt.Println(sourceID)
	return nil
}

func detect(input string) error {
	src := sources.Detect(input)
	w := newTabWriter()
	fmt.Fprintf(w, "Kind:\t%s\n", src.Kind)
	fmt.Fprintf(w, "Value:\t%s\n", src.Value)
	if src.ID != "" {
		fmt.Fprintf(w, "ID:\t%s\n", src.ID)
	}
	if src.Title != "" {
		fmt.Fprintf(w, "Title:\t%s\n", src.Title)
	}
	return w.Flush()
}

// Chat and studio operations
func ask(ctx context.Context, a *app, ref, question string, opts askOptions) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	ans, err := a.remote().Ask(ctx, id, question, api.AskOptions{
		SourceIDs:      opts.sources,
		ConversationID: opts.conversation,
	})
	if err != nil {
		return err
	}
	fmt.Println(ans.Text)
	if len(ans.References) > 0 {
		fmt.Println()
		for _, r := range ans.References {
			fmt.Printf("[%d] %s (%s)\n", r.CitationNumber, strings.TrimSpace(r.CitedText), r.SourceID)
		}
	}
	if ans.ConversationID != "" {
		fmt.Fprintf(os.Stderr, "conversation: %s (turn %d)\n", ans.ConversationID, ans.Turn)
	}
	return nil
}

func chatHistory(ctx context.Context, a *app, ref string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	h, err := a.remote().ChatHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("chat history: %w", err)
	}
	if len(h.Turns) == 0 {
		fmt.Fprintln(os.Stderr, "No chat history.")
		return nil
	}
	for _, turn := range h.Turns {
		fmt.Printf("[%s] %s\n", turn.Role, turn.Text)
	}
	if h.ConversationID != "" {
		fmt.Fprintf(os.Stderr, "conversation: %s (%d turns)\n", h.ConversationID, len(h.Turns))
	}
	return nil
}

func configureChat(ctx context.Context, a *app, ref string, cfg api.ChatConfig) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	applied, err := a.remote().ConfigureChat(ctx, id, cfg)
	if err != nil {
		return fmt.Errorf("configure chat: %w", err)
	}
	w := newTabWriter()
	fmt.Fprintf(w, "Goal:\t%s\n", applied.Goal)
	fmt.Fprintf(w, "Length:\t%s\n", applied.Length)
	if applied.Prompt != "" {
		fmt.Fprintf(w, "Prompt:\t%s\n", applied.Prompt)
	}
	return w.Flush()
}

func generate(ctx context.Context, a *app, ref, typeName string, opts generateOptions) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	t, err := studio.ParseType(typeName)
	if err != nil {
		return err
	}
	if opts.Language == "" {
		opts.Language = a.cfg.Language
	}
	p, err := studio.Build(t, opts.Options)
	if err != nil {
		return err
	}
	timeout, interval := a.cfg.StudioTimeout, a.cfg.PollInterval
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	if opts.interval > 0 {
		interval = opts.interval
	}
	dest := opts.output
	if dest == "" {
		dest = studio.OutputPath(a.cfg.OutputsDir, id, t, opts.downloadFormat)
	}
	if opts.noDownload {
		dest = ""
	}

	orch := generation.New(a.remote(), generation.WithLogger(a.logger))
	fmt.Fprintf(os.Stderr, "Generating %s (waiting up to %v)...\n", t, timeout)
	task, err := orch.Generate(ctx, generation.Request{
		NotebookID:   id,
		Params:       p,
		Timeout:      timeout,
		PollInterval: interval,
		Dest:         dest,
	})
	if task != nil {
		fmt.Fprintf(os.Stderr, "%s task %s: %s after %d polls\n", t, task.TaskID, task.State, task.Polls)
		if err != nil {
			// The task exists remotely; resubmitting would start another one.
			return committed(err)
		}
	}
	if err != nil {
		return err
	}
	if path := task.Downloaded(); path != "" {
		fmt.Println(path)
	} else {
		fmt.Println(task.TaskID)
	}
	return nil
}

func listArtifacts(ctx context.Context, a *app, ref, typeName string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	var only studio.Type
	if typeName != "" {
		if only, err = studio.ParseType(typeName); err != nil {
			return err
		}
	}
	arts, err := a.remote().ListArtifacts(ctx, id)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	w := newTabWriter()
	fmt.Fprintln(w, "ID\tTYPE\tSTATE\tTITLE")
	for _, art := range arts {
		if only != "" && art.Type != only {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", art.ID, art.Type, art.Phase, art.Title)
	}
	return w.Flush()
}

func removeArtifact(ctx context.Context, a *app, ref, artifactID string, force bool) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if !force && !confirm(fmt.Sprintf("Delete artifact %s from notebook %s?", artifactID, id)) {
		return fmt.Errorf("operation cancelled")
	}
	if err := a.remote().DeleteArtifact(ctx, id, artifactID); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted artifact %s\n", artifactID)
	return nil
}

func listTypes() error {
	w := newTabWriter()
	fmt.Fprintln(w, "TYPE\tEXT\tLANGUAGE\tINSTRUCTIONS\tOPTIONS")
	for _, s := range studio.Catalog() {
		var opts []string
		for _, c := range s.Choices {
			opts = append(opts, fmt.Sprintf("%s=%s (default %s)", c.Name, strings.Join(c.Values, "|"), c.Default))
		}
		if s.Synchronous {
			opts = append(opts, "synchronous")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Type, s.Extension, yesNo(s.AcceptsLanguage), yesNo(s.AcceptsInstructions), strings.Join(opts, "; "))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
