package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

var binary string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "nlmflow-test-*")
	if err != nil {
		panic(err)
	}
	binary = filepath.Join(dir, "nlmflow_test")
	cmd := exec.Command("go", "build", "-o", binary, ".")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build nlmflow for testing: " + err.Error())
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// testEnv returns an environment with an empty nlmflow home and no
// credentials.
func testEnv(t *testing.T) (home string, environ []string) {
	t.Helper()
	dir := t.TempDir()
	home = filepath.Join(dir, "home")
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "NLMFLOW_") || strings.HasPrefix(kv, "HOME=") {
			continue
		}
		environ = append(environ, kv)
	}
	environ = append(environ, "HOME="+dir, "NLMFLOW_HOME="+home)
	return home, environ
}

func TestCLICommands(t *testing.T) {
	engine := script.NewEngine()
	engine.Cmds["nlmflow_test"] = script.Program(binary, func(cmd *exec.Cmd) error {
		if cmd.Process != nil {
			cmd.Process.Signal(os.Interrupt)
		}
		return nil
	}, time.Second)

	files, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatalf("failed to read testdata: %v", err)
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".txt") {
			continue
		}
		t.Run(file.Name(), func(t *testing.T) {
			_, environ := testEnv(t)
			state, err := script.NewState(context.Background(), t.TempDir(), environ)
			if err != nil {
				t.Fatalf("failed to create script state: %v", err)
			}
			defer state.CloseAndWait(os.Stderr)

			content, err := os.ReadFile(filepath.Join("testdata", file.Name()))
			if err != nil {
				t.Fatalf("failed to read test file: %v", err)
			}
			scripttest.Run(t, engine, state, file.Name(), bufio.NewReader(strings.NewReader(string(content))))
		})
	}
}

func TestHelpCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantExit bool
		contains []string
	}{
		{
			name:     "no arguments shows usage",
			args:     []string{},
			wantExit: true,
			contains: []string{"Usage: nlmflow <command>", "Notebook Commands"},
		},
		{
			name:     "help flag",
			args:     []string{"-h"},
			wantExit: false,
			contains: []string{"Usage: nlmflow <command>", "Chat and Studio Commands"},
		},
		{
			name:     "help command",
			args:     []string{"help"},
			wantExit: false,
			contains: []string{"Usage: nlmflow <command>", "Global Options"},
		},
		{
			name:     "unknown command",
			args:     []string{"frobnicate"},
			wantExit: true,
			contains: []string{`unknown command "frobnicate"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, environ := testEnv(t)
			cmd := exec.Command(binary, tt.args...)
			cmd.Env = environ
			output, err := cmd.CombinedOutput()
			if err != nil && !tt.wantExit {
				t.Errorf("expected success but got error: %v", err)
			}
			if err == nil && tt.wantExit {
				t.Errorf("expected command to fail but it succeeded")
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(output), want) {
					t.Errorf("output missing expected string %q\nOutput:\n%s", want, output)
				}
			}
		})
	}
}

const (
	physicsID = "7f2a0c1e-1111-4222-8333-944455556666"
	historyID = "7f3b0000-aaaa-4bbb-8ccc-dddddddddddd"
)

func TestLibraryCommands(t *testing.T) {
	home, environ := testEnv(t)
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatal(err)
	}
	lib := fmt.Sprintf(`{
  "notebooks": {
    %[1]q: {"id": %[1]q, "name": "Physics", "sources_count": 3, "added_at": "2025-01-01"},
    %[2]q: {"id": %[2]q, "name": "History", "sources_count": 1, "added_at": "2025-01-02"}
  },
  "last_sync": %[3]q
}`, physicsID, historyID, time.Now().UTC().Format(time.RFC3339))
	libPath := filepath.Join(home, "library.json")
	if err := os.WriteFile(libPath, []byte(lib), 0o600); err != nil {
		t.Fatal(err)
	}

	runCLI := func(args ...string) (string, error) {
		t.Helper()
		cmd := exec.Command(binary, args...)
		cmd.Env = environ
		out, err := cmd.CombinedOutput()
		return string(out), err
	}

	out, err := runCLI("ls")
	if err != nil {
		t.Fatalf("ls: %v\n%s", err, out)
	}
	if !strings.Contains(out, physicsID) || !strings.Contains(out, "History") {
		t.Errorf("ls output:\n%s", out)
	}

	out, err = runCLI("activate", "7f2")
	if err != nil {
		t.Fatalf("activate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Active notebook: Physics") {
		t.Errorf("activate output:\n%s", out)
	}

	out, err = runCLI("activate", "7f")
	if err == nil || !strings.Contains(out, "ambiguous notebook reference") {
		t.Errorf("activate 7f: err = %v, output:\n%s", err, out)
	}

	out, err = runCLI("ls", "-json")
	if err != nil {
		t.Fatalf("ls -json: %v\n%s", err, out)
	}
	var entries []struct {
		ID       string  `json:"id"`
		UseCount int     `json:"use_count"`
		LastUsed *string `json:"last_used"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode ls -json: %v\n%s", err, out)
	}
	for _, e := range entries {
		if e.ID == physicsID && (e.UseCount != 1 || e.LastUsed == nil) {
			t.Errorf("activated entry = %+v", e)
		}
	}

	data, err := os.ReadFile(libPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"active_notebook_id": "`+physicsID+`"`) {
		t.Errorf("library file:\n%s", data)
	}
}
