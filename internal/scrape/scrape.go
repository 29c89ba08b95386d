// Package scrape lists notebooks by reading the NotebookLM home page in a
// headless browser. It is a fallback for when the RPC listing is
// unavailable and yields the same (id, name) listing shape.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/tmc/nlmflow/internal/auth"
	"github.com/tmc/nlmflow/internal/library"
)

// ErrSignedOut means the browser landed on a sign-in page.
var ErrSignedOut = errors.New("session expired: sign in again with 'nlmflow auth'")

// Notebook is one notebook card found on the page.
type Notebook struct {
	ID   string
	Name string
}

var titleRE = regexp.MustCompile(`id="project-([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})-title">\s*([^<]+?)\s*</span>`)

// ParseListing extracts notebook cards from rendered home page HTML. Ids
// are de-duplicated keeping the first name; names of two characters or
// fewer are placeholders and skipped.
func ParseListing(page string) []Notebook {
	var out []Notebook
	seen := make(map[string]bool)
	for _, m := range titleRE.FindAllStringSubmatch(page, -1) {
		id, name := m[1], strings.TrimSpace(html.UnescapeString(m[2]))
		if seen[id] || len([]rune(name)) <= 2 {
			continue
		}
		seen[id] = true
		out = append(out, Notebook{ID: id, Name: name})
	}
	return out
}

// Scraper renders the home page with a session's cookies.
type Scraper struct {
	Creds    auth.Credentials
	ExecPath string
	Logger   *slog.Logger
	// Settle is how long to wait for the client-side app to render cards.
	Settle time.Duration
}

// List renders the home page and parses it.
func (s *Scraper) List(ctx context.Context) ([]Notebook, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	execPath := s.ExecPath
	if execPath == "" {
		execPath = auth.FindBrowser()
	}
	settle := s.Settle
	if settle == 0 {
		settle = 4 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, 45*time.Second+settle)
	defer cancel()

	var (
		location string
		page     string
	)
	logger.Debug("rendering notebook list", "url", auth.TargetURL)
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, part := range strings.Split(s.Creds.Cookies, ";") {
				name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
				if !ok || name == "" {
					continue
				}
				if err := network.SetCookie(name, value).WithURL(auth.TargetURL).Do(ctx); err != nil {
					return fmt.Errorf("set cookie %s: %w", name, err)
				}
			}
			return nil
		}),
		chromedp.Navigate(auth.TargetURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	if auth.IsSignInURL(location) {
		return nil, ErrSignedOut
	}
	err = chromedp.Run(browserCtx,
		chromedp.Sleep(settle),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(settle/2),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	nbs := ParseListing(page)
	logger.Debug("notebook cards found", "count", len(nbs))
	return nbs, nil
}

// Listing adapts List to library.Store.Sync. The page carries no source
// counts, so entries report 0.
func (s *Scraper) Listing(now func() time.Time) library.ListFunc {
	return func(ctx context.Context) ([]library.Entry, error) {
		nbs, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]library.Entry, 0, len(nbs))
		for _, n := range nbs {
			entries = append(entries, library.NewEntry(n.ID, n.Name, 0, now()))
		}
		return entries, nil
	}
}
