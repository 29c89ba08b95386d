// Package notes writes human-readable records of pipeline runs into a
// Markdown vault.
package notes

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// QA is one question and its answer.
type QA struct {
	Question string
	Answer   string
}

// Note is the record handed to a sink.
type Note struct {
	NotebookID   string
	NotebookName string
	NotebookURL  string
	Pairs        []QA
	Files        []string
	Created      time.Time
}

type frontmatter struct {
	Source       string `yaml:"source"`
	NotebookID   string `yaml:"notebook_id"`
	NotebookName string `yaml:"notebook_name"`
	Created      string `yaml:"created"`
	URL          string `yaml:"url"`
}

// Markdown renders n with YAML frontmatter.
func Markdown(n Note) ([]byte, error) {
	fm, err := yaml.Marshal(frontmatter{
		Source:       "notebooklm",
		NotebookID:   n.NotebookID,
		NotebookName: n.NotebookName,
		Created:      n.Created.Format("2006-01-02"),
		URL:          n.NotebookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", n.NotebookName)

	if len(n.Pairs) > 0 {
		b.WriteString("## Questions\n\n")
		for _, qa := range n.Pairs {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", oneLine(qa.Question), strings.TrimSpace(qa.Answer))
		}
	}
	if len(n.Files) > 0 {
		b.WriteString("## Generated files\n\n")
		for _, f := range n.Files {
			base := filepath.Base(f)
			ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(base), "."))
			fmt.Fprintf(&b, "- [[%s]] (%s)\n", base, ext)
		}
		b.WriteString("\n")
	}
	if n.NotebookURL != "" {
		fmt.Fprintf(&b, "[Open notebook](%s)\n", n.NotebookURL)
	}
	return b.Bytes(), nil
}

// HTML renders the body of n (without frontmatter) as HTML.
func HTML(n Note) ([]byte, error) {
	md, err := Markdown(n)
	if err != nil {
		return nil, err
	}
	body := stripFrontmatter(md)
	var out bytes.Buffer
	if err := goldmark.Convert(body, &out); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return out.Bytes(), nil
}

func stripFrontmatter(md []byte) []byte {
	rest, ok := bytes.CutPrefix(md, []byte("---\n"))
	if !ok {
		return md
	}
	if _, after, ok := bytes.Cut(rest, []byte("\n---\n")); ok {
		return bytes.TrimLeft(after, "\n")
	}
	return md
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var unsafeName = regexp.MustCompile(`[\\/:*?"<>|#^\[\]]+`)

// FileName returns a vault-safe file name for a notebook name.
func FileName(name string) string {
	s := strings.TrimSpace(unsafeName.ReplaceAllString(name, "-"))
	s = strings.Trim(s, ". -")
	if s == "" {
		s = "notebook"
	}
	return s
}

// FileSink writes notes into a directory.
type FileSink struct {
	Dir string
	// HTML also writes an .html rendering next to the Markdown file.
	HTML bool
}

// Write persists n and returns the Markdown path.
func (s FileSink) Write(n Note) (string, error) {
	if s.Dir == "" {
		return "", fmt.Errorf("note sink: no directory")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("note sink: %w", err)
	}
	md, err := Markdown(n)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, FileName(n.NotebookName)+".md")
	if err := os.WriteFile(path, md, 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	if s.HTML {
		h, err := HTML(n)
		if err != nil {
			return path, err
		}
		if err := os.WriteFile(strings.TrimSuffix(path, ".md")+".html", h, 0o644); err != nil {
			return path, fmt.Errorf("write note html: %w", err)
		}
	}
	return path, nil
}
