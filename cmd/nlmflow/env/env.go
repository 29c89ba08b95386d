// Package env reads and writes the KEY=value credentials file kept in
// the nlmflow home directory.
package env

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Var is one stored variable.
type Var struct {
	Key   string
	Value string
}

// Parse reads KEY=value lines. Blank lines and # comments are skipped and
// quoted values are unquoted.
func Parse(data []byte) []Var {
	var vars []Var
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		}
		vars = append(vars, Var{Key: strings.TrimSpace(key), Value: value})
	}
	return vars
}

// Load sets the variables stored at path that are not already set in the
// environment. A missing file is not an error.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, v := range Parse(data) {
		if os.Getenv(v.Key) != "" {
			continue
		}
		os.Setenv(v.Key, v.Value)
	}
	return nil
}

// Save writes vars to path with owner-only permissions, replacing the file.
func Save(path string, vars ...Var) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	var b strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&b, "%s=%q\n", v.Key, v.Value)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}
