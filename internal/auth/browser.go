package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// TargetURL is the page credentials are read from.
const TargetURL = "https://notebooklm.google.com"

// BrowserAuth captures credentials from a Chrome session.
type BrowserAuth struct {
	logger     *slog.Logger
	execPath   string
	profileDir string
	headless   bool
	timeout    time.Duration
	interval   time.Duration
}

// Option configures a BrowserAuth.
type Option func(*BrowserAuth)

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option { return func(b *BrowserAuth) { b.logger = l } }

// WithExecPath selects the browser binary.
func WithExecPath(p string) Option { return func(b *BrowserAuth) { b.execPath = p } }

// WithProfileDir runs the browser against an existing user data dir, so
// an already signed-in profile can be reused.
func WithProfileDir(dir string) Option { return func(b *BrowserAuth) { b.profileDir = dir } }

// WithHeadless hides the browser window. Signing in interactively needs a window.
func WithHeadless(h bool) Option { return func(b *BrowserAuth) { b.headless = h } }

// WithTimeout bounds how long Capture waits for a signed-in page.
func WithTimeout(d time.Duration) Option { return func(b *BrowserAuth) { b.timeout = d } }

// New returns a BrowserAuth. The browser is located on first use.
func New(opts ...Option) *BrowserAuth {
	b := &BrowserAuth{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  5 * time.Minute,
		interval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Capture opens NotebookLM in a browser and waits until the page exposes
// a session token and the required cookies.
func (b *BrowserAuth) Capture(ctx context.Context) (Credentials, error) {
	execPath := b.execPath
	if execPath == "" {
		execPath = FindBrowser()
	}
	if execPath == "" {
		return Credentials{}, fmt.Errorf("no Chrome-based browser found (install Chrome or Chromium, or set NLMFLOW_BROWSER)")
	}

	profileDir := b.profileDir
	if profileDir == "" {
		tmp, err := os.MkdirTemp("", "nlmflow-chrome-*")
		if err != nil {
			return Credentials{}, fmt.Errorf("create profile dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		profileDir = tmp
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(profileDir),
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("window-size", "1280,800"),
		chromedp.Flag("disable-default-apps", true),
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		b.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	b.logger.Info("opening browser", "path", execPath, "profile", profileDir)
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(TargetURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	); err != nil {
		return Credentials{}, fmt.Errorf("load page: %w", err)
	}
	return b.poll(browserCtx)
}

// poll checks the page every interval until credentials appear. Sign-in
// pages are expected while the user logs in and are not errors.
func (b *BrowserAuth) poll(ctx context.Context) (Credentials, error) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var finalURL string
			_ = chromedp.Run(ctx, chromedp.Location(&finalURL))
			return Credentials{}, fmt.Errorf("auth data not found before timeout (URL: %s): %w", finalURL, ctx.Err())
		case <-ticker.C:
			creds, err := b.tryExtract(ctx)
			if err != nil {
				b.logger.Debug("waiting for sign-in", "reason", err)
				continue
			}
			return creds, nil
		}
	}
}

func (b *BrowserAuth) tryExtract(ctx context.Context) (Credentials, error) {
	var currentURL string
	if err := chromedp.Run(ctx, chromedp.Location(&currentURL)); err != nil {
		return Credentials{}, fmt.Errorf("read location: %w", err)
	}
	if IsSignInURL(currentURL) {
		return Credentials{}, fmt.Errorf("on sign-in page %s", currentURL)
	}

	var tokenExists bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(
		`!!window.WIZ_global_data && typeof WIZ_global_data.SNlM0e === 'string' && WIZ_global_data.SNlM0e.length > 10`,
		&tokenExists,
	)); err != nil {
		return Credentials{}, fmt.Errorf("check token presence: %w", err)
	}
	if !tokenExists {
		return Credentials{}, fmt.Errorf("token not present yet")
	}

	var creds Credentials
	err := chromedp.Run(ctx,
		chromedp.Evaluate(`WIZ_global_data.SNlM0e`, &creds.Token),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cks, err := network.GetCookies().WithUrls([]string{TargetURL}).Do(ctx)
			if err != nil {
				return fmt.Errorf("get cookies: %w", err)
			}
			pairs := make([]string, 0, len(cks))
			for _, ck := range cks {
				pairs = append(pairs, ck.Name+"="+ck.Value)
			}
			creds.Cookies = strings.Join(pairs, "; ")
			return nil
		}),
	)
	if err != nil {
		return Credentials{}, fmt.Errorf("extract auth data: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// IsSignInURL reports whether u is a Google sign-in page.
func IsSignInURL(u string) bool {
	return strings.Contains(u, "accounts.google.com") ||
		strings.Contains(u, "/signin") ||
		strings.Contains(u, "ServiceLogin")
}

// FindBrowser returns the first Chrome-based browser found, or "".
// NLMFLOW_BROWSER overrides the search.
func FindBrowser() string {
	if p := os.Getenv("NLMFLOW_BROWSER"); p != "" {
		return p
	}
	return findBrowser(browserCandidates(runtime.GOOS), exec.LookPath, fileExists)
}

func browserCandidates(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles"), `Google\Chrome\Application\chrome.exe`),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), `Google\Chrome\Application\chrome.exe`),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), `Microsoft\Edge\Application\msedge.exe`),
		}
	}
	return []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "brave-browser"}
}

// findBrowser tries absolute candidates on disk and bare names on PATH.
func findBrowser(candidates []string, lookPath func(string) (string, error), exists func(string) bool) string {
	for _, c := range candidates {
		if filepath.IsAbs(c) {
			if exists(c) {
				return c
			}
			continue
		}
		if p, err := lookPath(c); err == nil {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
