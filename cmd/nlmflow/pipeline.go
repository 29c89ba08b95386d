package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tmc/nlmflow/internal/pipeline"
)

func runPipeline(ctx context.Context, a *app, opts pipelineOptions) error {
	plan := opts.plan
	if plan.Note == "" {
		plan.Note = a.cfg.VaultDir
	}
	c := pipeline.New(a.remote(), a.store, pipeline.Settings{
		OutputsDir:   a.cfg.OutputsDir,
		Language:     a.cfg.Language,
		Timeout:      a.cfg.StudioTimeout,
		PollInterval: a.cfg.PollInterval,
	},
		pipeline.WithPreflight(a.credentials().Validate),
		pipeline.WithLogger(progressLogger(a)),
	)

	res, err := c.Run(ctx, plan)
	if err != nil {
		return err
	}
	printSummary(res)
	if err := res.Err(); err != nil {
		for _, f := range res.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %d failed\n", f.Stage, len(f.Failures))
			for _, item := range f.Failures {
				fmt.Fprintf(os.Stderr, "    - %s: %v\n", item.Item, item.Err)
			}
		}
		if errors.Is(err, pipeline.ErrPartialFailure) {
			return committed(fmt.Errorf("pipeline %s finished with failures", res.RunID))
		}
		return committed(err)
	}
	return nil
}

// progressLogger reports pipeline progress on stderr even without -debug.
func progressLogger(a *app) *slog.Logger {
	if debug {
		return a.logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func printSummary(res *pipeline.Result) {
	short := res.NotebookID
	if len(short) > 8 {
		short = short[:8]
	}
	fmt.Printf("Run:       %s\n", res.RunID)
	fmt.Printf("Notebook:  %s [%s...]\n", res.NotebookName, short)
	fmt.Printf("Sources:   %s\n", res.Sources)
	if res.Questions.OK+res.Questions.Failed > 0 {
		fmt.Printf("Questions: %s\n", res.Questions)
	}
	if res.Artifacts.OK+res.Artifacts.Failed+len(res.Skipped) > 0 {
		fmt.Printf("Artifacts: %s, %d skipped\n", res.Artifacts, len(res.Skipped))
	}
	for _, path := range res.Downloads {
		fmt.Printf("  %s\n", path)
	}
	if res.NotePath != "" {
		fmt.Printf("Note:      %s\n", res.NotePath)
	}
}
