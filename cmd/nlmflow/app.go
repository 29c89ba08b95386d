package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tmc/nlmflow/internal/api"
	"github.com/tmc/nlmflow/internal/auth"
	"github.com/tmc/nlmflow/internal/config"
	"github.com/tmc/nlmflow/internal/library"
	"github.com/tmc/nlmflow/internal/mcpserver"
)

// app carries the state shared by commands for one invocation.
type app struct {
	cfg    *config.Config
	store  *library.Store
	logger *slog.Logger
	client *api.Client
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{
		cfg:    cfg,
		store:  library.NewStore(cfg.LibraryPath),
		logger: logger,
	}
}

func (a *app) credentials() auth.Credentials {
	return auth.Credentials{Token: a.cfg.AuthToken, Cookies: a.cfg.Cookies}
}

// remote returns the API client, creating it on first use.
func (a *app) remote() *api.Client {
	if a.client == nil {
		a.client = api.New(a.cfg.AuthToken, a.cfg.Cookies,
			api.WithLogger(a.logger),
			api.WithDebug(debug),
		)
	}
	return a.client
}

func (a *app) setCredentials(c auth.Credentials) {
	a.cfg.AuthToken = c.Token
	a.cfg.Cookies = c.Cookies
	a.client = nil
}

// library loads the cache, reconciling it first when it is stale and
// credentials are available. Sync failures only produce a warning.
func (a *app) library(ctx context.Context) (*library.Library, error) {
	lib, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if !lib.Stale(time.Now(), a.cfg.SyncStaleness) || a.credentials().Validate() != nil {
		return lib, nil
	}
	fmt.Fprintln(os.Stderr, "nlmflow: library is stale, syncing...")
	synced, d, err := a.store.Sync(ctx, a.remote().Listing(time.Now))
	if err != nil {
		fmt.Fprintf(os.Stderr, "nlmflow: warning: sync failed: %v\n", err)
		return lib, nil
	}
	if d.Changed() {
		fmt.Fprintf(os.Stderr, "nlmflow: synced: %d added, %d updated, %d removed\n", d.Added, d.Updated, d.Removed)
	}
	return synced, nil
}

// resolve maps a notebook reference to an id using the library.
func (a *app) resolve(ctx context.Context, ref string) (string, error) {
	lib, err := a.library(ctx)
	if err != nil {
		return "", err
	}
	id, err := library.ResolveOrActive(ref, lib)
	if err != nil {
		return "", err
	}
	if debug && id != ref {
		fmt.Fprintf(os.Stderr, "nlmflow: %s resolved to %s\n", ref, id)
	}
	return id, nil
}

// reauthenticate captures fresh credentials in a browser and stores them.
func (a *app) reauthenticate(ctx context.Context) error {
	creds, err := captureCredentials(ctx, a)
	if err != nil {
		return err
	}
	if err := saveCredentials(a.cfg, creds); err != nil {
		return err
	}
	a.setCredentials(creds)
	return nil
}

func (a *app) serveMCP(ctx context.Context) error {
	return mcpserver.Run(ctx, a.store, a.cfg.Language, version)
}
