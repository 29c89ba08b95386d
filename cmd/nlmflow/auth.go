package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"

	"golang.org/x/term"

	"github.com/tmc/nlmflow/cmd/nlmflow/env"
	"github.com/tmc/nlmflow/internal/auth"
	"github.com/tmc/nlmflow/internal/config"
)

// maskProfileName masks profile paths in debug output
func maskProfileName(profile string) string {
	if profile == "" {
		return ""
	}
	if len(profile) > 8 {
		return profile[:4] + "****" + profile[len(profile)-4:]
	} else if len(profile) > 2 {
		return profile[:2] + "****"
	}
	return "****"
}

func browserPath() string {
	return auth.FindBrowser()
}

// handleAuth captures credentials and stores them in the env file. With
// check set it only validates what is stored. A curl command piped on
// stdin (as copied from the browser's network tab) is used instead of a
// browser when present.
func handleAuth(ctx context.Context, a *app, check bool) error {
	if check {
		if err := a.credentials().Validate(); err != nil {
			return err
		}
		fmt.Println("credentials ok")
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if len(input) > 0 {
				if debug {
					fmt.Fprintf(os.Stderr, "Parsing auth info from stdin input (%d bytes)\n", len(input))
				}
				creds, err := detectAuthInfo(string(input))
				if err != nil {
					return err
				}
				return saveCredentials(a.cfg, creds)
			}
		}
	}

	creds, err := captureCredentials(ctx, a)
	if err != nil {
		return err
	}
	return saveCredentials(a.cfg, creds)
}

func captureCredentials(ctx context.Context, a *app) (auth.Credentials, error) {
	fmt.Fprintf(os.Stderr, "nlmflow: launching browser to login... (profile:%v)\n", maskProfileName(a.cfg.BrowserProfile))
	b := auth.New(
		auth.WithLogger(a.logger),
		auth.WithProfileDir(a.cfg.BrowserProfile),
	)
	creds, err := b.Capture(ctx)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("browser auth failed: %w", err)
	}
	return creds, nil
}

var (
	curlCookieRE = regexp.MustCompile(`-H ['"]cookie: ([^'"]+)['"]`)
	curlTokenRE  = regexp.MustCompile(`at=([^&\s'"]+)`)
)

// detectAuthInfo extracts credentials from a copied curl command.
func detectAuthInfo(cmd string) (auth.Credentials, error) {
	cookieMatch := curlCookieRE.FindStringSubmatch(cmd)
	if len(cookieMatch) < 2 {
		return auth.Credentials{}, fmt.Errorf("no cookies found in input (looking for cookie header in curl format)")
	}
	atMatch := curlTokenRE.FindStringSubmatch(cmd)
	if len(atMatch) < 2 {
		return auth.Credentials{}, fmt.Errorf("no auth token found")
	}
	token := atMatch[1]
	if t, err := url.QueryUnescape(token); err == nil {
		token = t
	}
	creds := auth.Credentials{Token: token, Cookies: cookieMatch[1]}
	return creds, creds.Validate()
}

func saveCredentials(cfg *config.Config, creds auth.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	path := cfg.EnvFile()
	err := env.Save(path,
		env.Var{Key: "NLMFLOW_COOKIES", Value: creds.Cookies},
		env.Var{Key: "NLMFLOW_AUTH_TOKEN", Value: creds.Token},
		env.Var{Key: "NLMFLOW_BROWSER_PROFILE", Value: cfg.BrowserProfile},
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "nlmflow: auth info written to %s\n", path)
	return nil
}
