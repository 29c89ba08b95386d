// Package sources classifies raw source strings into the kinds of
// source a notebook accepts.
package sources

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Kind is a source category.
type Kind int

const (
	Text Kind = iota
	Video
	Drive
	Link
	File
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "youtube"
	case Drive:
		return "drive"
	case Link:
		return "url"
	case File:
		return "file"
	}
	return "text"
}

// Source is a classified source string.
type Source struct {
	Kind Kind
	// Value is the normalized input: a full URL, a file path or the text.
	Value string
	// ID is the video id or drive file id when one could be extracted.
	ID    string
	Title string
}

func (s Source) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.Value)
}

// fileExtensions are treated as local files even when the path does not exist yet.
var fileExtensions = []string{
	".pdf", ".docx", ".txt", ".md", ".png", ".jpg", ".jpeg", ".mp3", ".wav", ".m4a", ".mp4",
}

// longText is the length past which unmatched input is always text.
const longText = 200

// Detector classifies source strings.
type Detector struct {
	// Exists reports whether a local path exists.
	Exists func(path string) bool
	// HomeDir replaces a leading ~ in paths. Empty means the user's home.
	HomeDir string
}

// Detect classifies s using the local filesystem.
func Detect(s string) Source {
	return Detector{}.Detect(s)
}

// Detect classifies s.
func (d Detector) Detect(s string) Source {
	exists := d.Exists
	if exists == nil {
		exists = fileExists
	}
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	if isYouTube(lower) {
		return Source{Kind: Video, Value: s, ID: youTubeID(s)}
	}
	if strings.Contains(lower, "drive.google.com") || strings.Contains(lower, "docs.google.com") {
		return Source{Kind: Drive, Value: withScheme(s), ID: driveID(s)}
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Source{Kind: Link, Value: s}
	}
	if path := d.expandHome(s); exists(path) || slices.Contains(fileExtensions, strings.ToLower(filepath.Ext(path))) {
		return Source{Kind: File, Value: path, Title: filepath.Base(path)}
	}
	if len(s) <= longText && strings.Contains(s, ".") && !strings.ContainsAny(s, " \t\n") {
		return Source{Kind: Link, Value: "https://" + s}
	}
	return Source{Kind: Text, Value: s, Title: TextTitle(s)}
}

func (d Detector) expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := d.HomeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return path
		}
	}
	return filepath.Join(home, path[1:])
}

// TextTitle derives a title for a text source.
func TextTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}

func isYouTube(lower string) bool {
	return strings.Contains(lower, "youtube.com/watch?") ||
		strings.Contains(lower, "youtu.be/") ||
		strings.Contains(lower, "youtube.com/shorts/")
}

var driveIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/d/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`),
}

func driveID(s string) string {
	for _, re := range driveIDPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

func youTubeID(s string) string {
	u, err := url.Parse(withScheme(s))
	if err != nil {
		return ""
	}
	switch {
	case strings.HasSuffix(u.Host, "youtu.be"):
		return strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"):
		return strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
	}
	return u.Query().Get("v")
}

func withScheme(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	return "https://" + s
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
