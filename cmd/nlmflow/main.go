package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"

	"github.com/tmc/nlmflow/cmd/nlmflow/env"
	"github.com/tmc/nlmflow/internal/config"
)

const version = "0.1.0"

// Global flags
var (
	authToken      string
	cookies        string
	debug          bool
	browserProfile string
	libraryPath    string
	outputsDir     string
)

func init() {
	flag.BoolVar(&debug, "debug", false, "enable debug output")
	flag.StringVar(&authToken, "auth", "", "auth token (or set NLMFLOW_AUTH_TOKEN)")
	flag.StringVar(&cookies, "cookies", "", "cookies for authentication (or set NLMFLOW_COOKIES)")
	flag.StringVar(&browserProfile, "profile", "", "browser profile directory used by auth (or set NLMFLOW_BROWSER_PROFILE)")
	flag.StringVar(&libraryPath, "library", "", "notebook library file (default ~/.nlmflow/library.json)")
	flag.StringVar(&outputsDir, "outputs", "", "directory for downloaded artifacts (default ~/.nlmflow/outputs)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nlmflow <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Notebook Commands:\n")
		fmt.Fprintf(os.Stderr, "  list, ls [-json]      List cached notebooks\n")
		fmt.Fprintf(os.Stderr, "  sync [-scrape]        Reconcile the library with the remote listing\n")
		fmt.Fprintf(os.Stderr, "  create <name>         Create a notebook and make it active\n")
		fmt.Fprintf(os.Stderr, "  rm [-f] <ref>         Delete a notebook\n")
		fmt.Fprintf(os.Stderr, "  get <ref>             Show notebook details\n")
		fmt.Fprintf(os.Stderr, "  activate <ref>        Set the active notebook\n\n")

		fmt.Fprintf(os.Stderr, "Source Commands:\n")
		fmt.Fprintf(os.Stderr, "  sources <ref>         List sources in a notebook\n")
		fmt.Fprintf(os.Stderr, "  add <ref> <source>    Add a URL, file, text or '-' for stdin\n")
		fmt.Fprintf(os.Stderr, "  detect <source>       Show how a source would be added\n\n")

		fmt.Fprintf(os.Stderr, "Chat and Studio Commands:\n")
		fmt.Fprintf(os.Stderr, "  ask <ref> <question>  Ask a question against the notebook sources\n")
		fmt.Fprintf(os.Stderr, "  history <ref>         Show the chat history\n")
		fmt.Fprintf(os.Stderr, "  configure <ref>       Set the chat goal, response length or persona\n")
		fmt.Fprintf(os.Stderr, "  generate <ref> <type> Generate and download an artifact\n")
		fmt.Fprintf(os.Stderr, "  artifacts <ref>       List generated artifacts (-type to filter)\n")
		fmt.Fprintf(os.Stderr, "  artifact-rm <ref> <id> Delete a generated artifact\n")
		fmt.Fprintf(os.Stderr, "  types                 List artifact types and their options\n")
		fmt.Fprintf(os.Stderr, "  pipeline [options]    Create, fill, query and generate in one run\n\n")

		fmt.Fprintf(os.Stderr, "Other Commands:\n")
		fmt.Fprintf(os.Stderr, "  auth [-check]         Capture credentials from a browser session\n")
		fmt.Fprintf(os.Stderr, "  mcp                   Serve library tools over MCP (stdio)\n\n")

		fmt.Fprintf(os.Stderr, "A <ref> is a notebook id, a unique id prefix, a notebook URL, or 'active'.\n\n")
		fmt.Fprintf(os.Stderr, "Global Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	loadStoredEnv()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nlmflow: %v\n", err)
		os.Exit(1)
	}
}

// loadStoredEnv loads the credentials file written by 'nlmflow auth'.
func loadStoredEnv() {
	home := os.Getenv("NLMFLOW_HOME")
	if home == "" {
		home = config.DefaultHome()
	}
	if err := env.Load(config.DefaultConfig(home).EnvFile()); err != nil && debug {
		fmt.Fprintf(os.Stderr, "nlmflow: load env: %v\n", err)
	}
}

var (
	localCommands  = []string{"list", "ls", "activate", "detect", "types", "mcp", "auth"}
	remoteCommands = []string{"sync", "create", "rm", "get", "sources", "add", "ask", "history", "configure", "generate", "artifacts", "artifact-rm", "pipeline"}
)

func isValidCommand(cmd string) bool {
	return slices.Contains(localCommands, cmd) || slices.Contains(remoteCommands, cmd)
}

// isAuthCommand reports whether cmd talks to the remote service.
func isAuthCommand(cmd string) bool {
	return slices.Contains(remoteCommands, cmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		cfg.AuthToken = authToken
	}
	if cookies != "" {
		cfg.Cookies = cookies
	}
	if browserProfile != "" {
		cfg.BrowserProfile = browserProfile
	}
	if libraryPath != "" {
		cfg.LibraryPath = libraryPath
	}
	if outputsDir != "" {
		cfg.OutputsDir = outputsDir
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run() error {
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	switch cmd {
	case "help", "-h", "--help":
		flag.Usage()
		return nil
	case "version":
		fmt.Println("nlmflow", version)
		return nil
	}
	if !isValidCommand(cmd) {
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	// Arguments are checked before credentials so usage errors come first.
	inv, err := parseCommand(cmd, args)
	if errors.Is(err, errHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if debug {
		fmt.Fprintf(os.Stderr, "nlmflow: debug mode enabled (home %s)\n", cfg.Home)
	}
	a := newApp(cfg, newLogger())

	if isAuthCommand(cmd) {
		if err := a.credentials().Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !isAuthCommand(cmd) {
		return runCmd(ctx, a, inv)
	}
	return runWithReauth(ctx, os.Stderr,
		func(ctx context.Context) error { return runCmd(ctx, a, inv) },
		a.reauthenticate,
	)
}

func runCmd(ctx context.Context, a *app, inv *invocation) error {
	args := inv.args
	switch inv.cmd {
	case "list", "ls":
		return list(ctx, a, inv.json)
	case "sync":
		return syncLibrary(ctx, a, inv.scrape)
	case "create":
		return create(ctx, a, args[0])
	case "rm":
		return remove(ctx, a, args[0], inv.force)
	case "get":
		return get(ctx, a, args[0])
	case "activate":
		return activate(ctx, a, args[0])
	case "sources":
		return listSources(ctx, a, args[0])
	case "add":
		return addSource(ctx, a, args[0], args[1])
	case "detect":
		return detect(args[0])
	case "ask":
		return ask(ctx, a, args[0], args[1], inv.ask)
	case "generate":
		return generate(ctx, a, args[0], args[1], inv.gen)
	case "artifacts":
		return listArtifacts(ctx, a, args[0], inv.artifactType)
	case "history":
		return chatHistory(ctx, a, args[0])
	case "configure":
		return configureChat(ctx, a, args[0], inv.chat)
	case "artifact-rm":
		return removeArtifact(ctx, a, args[0], args[1], inv.force)
	case "types":
		return listTypes()
	case "pipeline":
		return runPipeline(ctx, a, inv.plan)
	case "auth":
		return handleAuth(ctx, a, inv.check)
	case "mcp":
		return a.serveMCP(ctx)
	}
	return fmt.Errorf("unknown command %q", inv.cmd)
}
