package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/nlmflow/internal/batchexecute"
	"github.com/tmc/nlmflow/internal/studio"
)

// downloadFormat derives the quiz/flashcards export format from the
// destination's extension.
func downloadFormat(t studio.Type, dest string) string {
	if t != studio.Quiz && t != studio.Flashcards {
		return ""
	}
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".md":
		return studio.FormatMarkdown
	case ".html", ".htm":
		return studio.FormatHTML
	}
	return studio.FormatJSON
}

// DownloadArtifact writes a completed artifact to dest and returns the
// path written. Artifacts come either as a signed URL, fetched with the
// session cookies, or inline.
func (c *Client) DownloadArtifact(ctx context.Context, notebookID, taskID string, t studio.Type, dest string) (string, error) {
	a, err := c.getArtifact(ctx, notebookID, taskID, downloadFormat(t, dest))
	if err != nil {
		return "", err
	}
	if a.Phase != studio.PhaseComplete {
		return "", remoteErr("download artifact", fmt.Errorf("artifact %s is %s", taskID, a.Phase))
	}
	switch {
	case a.URL != "":
		if err := c.fetch(ctx, a.URL, dest); err != nil {
			return "", remoteErr("download artifact", err)
		}
	case a.Content != "":
		if err := writeFile(dest, strings.NewReader(a.Content)); err != nil {
			return "", err
		}
	default:
		c.dump("download artifact", a)
		return "", remoteErr("download artifact", fmt.Errorf("artifact %s has no content", taskID))
	}
	c.logger.Debug("artifact downloaded", "type", t, "task", taskID, "path", dest)
	return dest, nil
}

func (c *Client) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.cookies != "" {
		req.Header.Set("cookie", c.cookies)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &batchexecute.HTTPError{StatusCode: resp.StatusCode, Message: "download failed: " + resp.Status}
	}
	return writeFile(dest, resp.Body)
}

// writeFile streams r to a temporary file next to dest and renames it
// into place, so a failed download leaves no partial file behind.
func writeFile(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", dest, err)
	}
	return nil
}
