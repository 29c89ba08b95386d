package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tmc/nlmflow/internal/api"
	"github.com/tmc/nlmflow/internal/pipeline"
	"github.com/tmc/nlmflow/internal/studio"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type askOptions struct {
	sources      stringList
	conversation string
}

type generateOptions struct {
	studio.Options
	sources        stringList
	output         string
	downloadFormat string
	noDownload     bool
	timeout        time.Duration
	interval       time.Duration
}

type pipelineOptions struct {
	file string
	plan pipeline.Plan
	// list flags are collected here and copied into plan after parsing.
	sources, questions, artifacts stringList
	noteFormat                    string
}

// invocation is a parsed command line.
type invocation struct {
	cmd  string
	args []string

	json   bool
	scrape bool
	force  bool
	check  bool
	ask    askOptions
	gen    generateOptions
	plan   pipelineOptions
	chat   api.ChatConfig
	// artifactType filters the artifacts listing.
	artifactType string
}

type commandSpec struct {
	usage string
	nargs int
}

var commandSpecs = map[string]commandSpec{
	"list":        {"list [-json]", 0},
	"ls":          {"ls [-json]", 0},
	"sync":        {"sync [-scrape]", 0},
	"create":      {"create <name>", 1},
	"rm":          {"rm [-f] <ref>", 1},
	"get":         {"get <ref>", 1},
	"activate":    {"activate <ref>", 1},
	"sources":     {"sources <ref>", 1},
	"add":         {"add <ref> <source>", 2},
	"detect":      {"detect <source>", 1},
	"ask":         {"ask [-source id]... [-conversation id] <ref> <question>", 2},
	"generate":    {"generate [options] <ref> <type>", 2},
	"history":     {"history <ref>", 1},
	"configure":   {"configure [-goal g] [-length l] [-prompt text] <ref>", 1},
	"artifacts":   {"artifacts [-type t] <ref>", 1},
	"artifact-rm": {"artifact-rm [-f] <ref> <artifact-id>", 2},
	"types":       {"types", 0},
	"pipeline":    {"pipeline [-f plan.yaml] [-name n] [-source s]... [-question q]... [-artifact t]... [-note dir]", 0},
	"auth":        {"auth [-check]", 0},
	"mcp":         {"mcp", 0},
}

// errHelp reports that a command's usage was requested and printed.
var errHelp = errors.New("help requested")

// parseCommand parses the flags and positional arguments of cmd.
func parseCommand(cmd string, args []string) (*invocation, error) {
	return parseCommandOutput(cmd, args, os.Stderr)
}

func parseCommandOutput(cmd string, args []string, stderr io.Writer) (*invocation, error) {
	spec, ok := commandSpecs[cmd]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	inv := &invocation{cmd: cmd}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: nlmflow %s\n", spec.usage)
		fs.PrintDefaults()
	}

	switch cmd {
	case "list", "ls":
		fs.BoolVar(&inv.json, "json", false, "output JSON")
	case "sync":
		fs.BoolVar(&inv.scrape, "scrape", false, "list notebooks by scraping the web page in a browser")
	case "rm", "artifact-rm":
		fs.BoolVar(&inv.force, "f", false, "do not ask for confirmation")
	case "auth":
		fs.BoolVar(&inv.check, "check", false, "only verify the stored credentials")
	case "configure":
		fs.StringVar(&inv.chat.Goal, "goal", "", "chat goal: "+strings.Join(api.ChatGoal.Values, ", "))
		fs.StringVar(&inv.chat.Length, "length", "", "response length: "+strings.Join(api.ChatLength.Values, ", "))
		fs.StringVar(&inv.chat.Prompt, "prompt", "", "persona prompt (selects the custom goal)")
	case "artifacts":
		fs.StringVar(&inv.artifactType, "type", "", "only list artifacts of this type")
	case "ask":
		fs.Var(&inv.ask.sources, "source", "restrict the question to a source id (repeatable)")
		fs.StringVar(&inv.ask.conversation, "conversation", "", "continue a conversation")
	case "generate":
		g := &inv.gen
		fs.StringVar(&g.Language, "language", "", "output language (default from NLMFLOW_LANGUAGE)")
		fs.StringVar(&g.Instructions, "instructions", "", "custom instructions")
		fs.StringVar(&g.Format, "format", "", "format option of the type")
		fs.StringVar(&g.Style, "style", "", "style option of the type")
		fs.StringVar(&g.Length, "length", "", "length option of the type")
		fs.StringVar(&g.Difficulty, "difficulty", "", "quiz and flashcards difficulty")
		fs.StringVar(&g.Quantity, "quantity", "", "quiz and flashcards quantity")
		fs.Var(&g.sources, "source", "restrict generation to a source id (repeatable)")
		fs.StringVar(&g.output, "o", "", "download path (default <outputs>/<id>_<type>.<ext>)")
		fs.StringVar(&g.downloadFormat, "download-format", studio.FormatJSON, "quiz and flashcards download format: json, markdown or html")
		fs.BoolVar(&g.noDownload, "no-download", false, "wait for completion but do not download")
		fs.DurationVar(&g.timeout, "timeout", 0, "how long to wait (default from NLMFLOW_TIMEOUT)")
		fs.DurationVar(&g.interval, "interval", 0, "poll interval (default from NLMFLOW_POLL_INTERVAL)")
	case "pipeline":
		p := &inv.plan
		fs.StringVar(&p.file, "f", "", "YAML plan file")
		fs.StringVar(&p.plan.Name, "name", "", "notebook name")
		fs.Var(&p.sources, "source", "source to add (repeatable)")
		fs.Var(&p.questions, "question", "question to ask (repeatable)")
		fs.Var(&p.artifacts, "artifact", "artifact type to generate (repeatable)")
		fs.StringVar(&p.plan.Note, "note", "", "vault directory for the run note (default from NLMFLOW_VAULT)")
		fs.StringVar(&p.noteFormat, "note-format", "", "note format: md or html (default md)")
		fs.StringVar(&p.plan.Language, "language", "", "output language for generated artifacts")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errHelp
		}
		return nil, err
	}
	if fs.NArg() != spec.nargs {
		fs.Usage()
		return nil, fmt.Errorf("invalid arguments")
	}
	inv.args = fs.Args()

	switch cmd {
	case "generate":
		inv.gen.SourceIDs = inv.gen.sources
		if _, err := studio.ParseType(inv.args[1]); err != nil {
			return nil, err
		}
	case "artifacts":
		if inv.artifactType != "" {
			if _, err := studio.ParseType(inv.artifactType); err != nil {
				return nil, err
			}
		}
	case "pipeline":
		if err := inv.plan.resolve(); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// resolve loads the plan file, if any. Flags override its scalar fields
// and append to its lists.
func (p *pipelineOptions) resolve() error {
	if p.file != "" {
		fromFile, err := pipeline.LoadPlan(p.file)
		if err != nil {
			return err
		}
		if p.plan.Name != "" {
			fromFile.Name = p.plan.Name
		}
		if p.plan.Note != "" {
			fromFile.Note = p.plan.Note
		}
		if p.plan.Language != "" {
			fromFile.Language = p.plan.Language
		}
		p.plan = fromFile
	}
	p.plan.Sources = append(p.plan.Sources, p.sources...)
	p.plan.Questions = append(p.plan.Questions, p.questions...)
	p.plan.Artifacts = append(p.plan.Artifacts, p.artifacts...)
	switch p.noteFormat {
	case "":
	case "md", "markdown":
		p.plan.HTML = false
	case "html":
		p.plan.HTML = true
	default:
		return fmt.Errorf("invalid -note-format %q (want md or html)", p.noteFormat)
	}
	return p.plan.Validate()
}
