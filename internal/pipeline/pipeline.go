// Package pipeline runs the create, add sources, ask, generate and note
// sequence against one new notebook.
//
// Every stage runs sequentially. Only a failed credentials check or a
// failed notebook creation stops a run; item failures in later stages
// are collected into the Result.
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tmc/nlmflow/internal/api"
	"github.com/tmc/nlmflow/internal/generation"
	"github.com/tmc/nlmflow/internal/library"
	"github.com/tmc/nlmflow/internal/notes"
	"github.com/tmc/nlmflow/internal/sources"
	"github.com/tmc/nlmflow/internal/studio"
)

// Remote is the part of the remote service a pipeline uses.
type Remote interface {
	generation.Remote
	CreateNotebook(ctx context.Context, title string) (api.Notebook, error)
	AddSource(ctx context.Context, notebookID string, src sources.Source) (string, error)
	Ask(ctx context.Context, notebookID, question string, opts api.AskOptions) (api.Answer, error)
}

// Sink persists the note of a run and returns its path.
type Sink interface {
	Write(n notes.Note) (string, error)
}

// Settings are the generation defaults for a run.
type Settings struct {
	OutputsDir   string
	Language     string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Coordinator runs pipelines.
type Coordinator struct {
	remote    Remote
	store     *library.Store
	settings  Settings
	preflight func() error
	detector  sources.Detector
	sink      func(p Plan) Sink
	logger    *slog.Logger
	now       func() time.Time
	orchOpts  []generation.Option
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPreflight sets the credentials check run before anything else.
func WithPreflight(check func() error) Option {
	return func(c *Coordinator) { c.preflight = check }
}

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithDetector replaces the source detector.
func WithDetector(d sources.Detector) Option {
	return func(c *Coordinator) { c.detector = d }
}

// WithSink replaces the note sink chosen for a plan.
func WithSink(fn func(p Plan) Sink) Option {
	return func(c *Coordinator) { c.sink = fn }
}

// WithClock sets the time source and the sleep used between polls.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Coordinator) {
		c.now = now
		c.orchOpts = append(c.orchOpts, generation.WithClock(now, sleep))
	}
}

// New returns a coordinator that records created notebooks in store.
func New(remote Remote, store *library.Store, settings Settings, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:    remote,
		store:     store,
		settings:  settings,
		preflight: func() error { return nil },
		sink:      fileSink,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func fileSink(p Plan) Sink {
	return notes.FileSink{Dir: p.Note, HTML: p.HTML}
}

// Run executes plan. The error is non-nil only when the run could not
// start or the notebook could not be created; item failures are in
// Result.Failures.
func (c *Coordinator) Run(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	res := &Result{RunID: newRunID(c.now()), NotebookName: plan.Name}
	log := c.logger.With("run", res.RunID)

	if err := c.preflight(); err != nil {
		return res, fmt.Errorf("preflight: %w", err)
	}

	nb, err := c.remote.CreateNotebook(ctx, plan.Name)
	if err != nil {
		return res, fmt.Errorf("create notebook: %w", err)
	}
	res.NotebookID = nb.ID
	log.Info("notebook created", "id", nb.ID, "name", plan.Name)
	c.remember(log, nb.ID, plan.Name, res)

	c.addSources(ctx, log, plan, res)
	c.ask(ctx, log, plan, res)
	c.generate(ctx, log, plan, res)
	c.writeNote(log, plan, res)
	return res, nil
}

// remember stores the new notebook as the active library entry. The
// remote notebook exists either way, so a store failure is reported as a
// library stage failure and the run continues.
func (c *Coordinator) remember(log *slog.Logger, id, name string, res *Result) {
	if c.store == nil {
		return
	}
	var count Count
	st := &stage{name: StageLibrary, count: &count}
	now := c.now()
	_, err := c.store.Update(func(lib *library.Library) error {
		lib.Upsert(library.NewEntry(id, name, 0, now))
		return lib.Activate(id, now)
	})
	if err != nil {
		log.Warn("could not record notebook", "id", id, "error", err)
		st.fail(id, err)
	} else {
		st.ok()
	}
	st.close(res)
}

func (c *Coordinator) addSources(ctx context.Context, log *slog.Logger, plan Plan, res *Result) {
	st := &stage{name: StageSources, count: &res.Sources}
	for _, raw := range nonEmpty(plan.Sources) {
		src := c.detector.Detect(raw)
		if err := ctx.Err(); err != nil {
			st.fail(src.Value, err)
			continue
		}
		id, err := c.remote.AddSource(ctx, res.NotebookID, src)
		if err != nil {
			log.Warn("source failed", "kind", src.Kind, "source", src.Value, "error", err)
			st.fail(src.Value, err)
			continue
		}
		log.Info("source added", "kind", src.Kind, "id", id)
		st.ok()
	}
	st.close(res)
}

func (c *Coordinator) ask(ctx context.Context, log *slog.Logger, plan Plan, res *Result) {
	st := &stage{name: StageQuestions, count: &res.Questions}
	var conversation string
	for _, q := range nonEmpty(plan.Questions) {
		if err := ctx.Err(); err != nil {
			st.fail(q, err)
			continue
		}
		ans, err := c.remote.Ask(ctx, res.NotebookID, q, api.AskOptions{ConversationID: conversation})
		if err != nil {
			log.Warn("question failed", "question", q, "error", err)
			st.fail(q, err)
			continue
		}
		if conversation == "" {
			conversation = ans.ConversationID
		}
		res.Pairs = append(res.Pairs, notes.QA{Question: q, Answer: ans.Text})
		log.Info("question answered", "turn", ans.Turn, "references", len(ans.References))
		st.ok()
	}
	st.close(res)
}

func (c *Coordinator) generate(ctx context.Context, log *slog.Logger, plan Plan, res *Result) {
	st := &stage{name: StageArtifacts, count: &res.Artifacts}
	orch := generation.New(c.remote, append([]generation.Option{generation.WithLogger(log)}, c.orchOpts...)...)
	lang := plan.Language
	if lang == "" {
		lang = c.settings.Language
	}
	for _, name := range nonEmpty(plan.Artifacts) {
		t, err := studio.ParseType(name)
		if err != nil {
			log.Warn("unknown artifact type, skipping", "type", name)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		p, err := studio.Build(t, studio.Options{Language: lang, Instructions: plan.Instructions})
		if err != nil {
			st.fail(name, err)
			continue
		}
		log.Info("generating", "type", t)
		task, err := orch.Generate(ctx, generation.Request{
			NotebookID:   res.NotebookID,
			Params:       p,
			Timeout:      c.settings.Timeout,
			PollInterval: c.settings.PollInterval,
			Dest:         studio.OutputPath(c.settings.OutputsDir, res.NotebookID, t, ""),
		})
		if err != nil {
			log.Warn("artifact failed", "type", t, "error", err)
			st.fail(name, err)
			continue
		}
		res.Downloads = append(res.Downloads, task.Downloaded())
		log.Info("artifact downloaded", "type", t, "path", task.Downloaded(), "polls", task.Polls)
		st.ok()
	}
	st.close(res)
}

func (c *Coordinator) writeNote(log *slog.Logger, plan Plan, res *Result) {
	if plan.Note == "" {
		return
	}
	var count Count
	st := &stage{name: StageNote, count: &count}
	path, err := c.sink(plan).Write(notes.Note{
		NotebookID:   res.NotebookID,
		NotebookName: res.NotebookName,
		NotebookURL:  library.NewEntry(res.NotebookID, res.NotebookName, 0, c.now()).URL(),
		Pairs:        res.Pairs,
		Files:        res.Downloads,
		Created:      c.now(),
	})
	if err != nil {
		log.Warn("note failed", "error", err)
		st.fail(plan.Note, err)
	} else {
		res.NotePath = path
		st.ok()
	}
	st.close(res)
}

func newRunID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String()
}
