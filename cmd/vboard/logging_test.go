package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/evanschultz/vboard/internal/config"
)

// TestRuntimeLoggerCanMuteConsoleSink verifies behavior for the covered scenario.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	logger, err := newRuntimeLogger(&console, "vboard", false, config.Default("").Logging, nil)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	component := logger.Component("app")

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	component.Info("component during")
	logger.SetConsoleEnabled(true)
	logger.Info("after")
	component.Info("component after")

	out := console.String()
	for _, want := range []string{"before", "after", "component after", "component=app"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected console log to include %q, got %q", want, out)
		}
	}
	if strings.Contains(out, "during") {
		t.Fatalf("expected muted console log to omit muted lines, got %q", out)
	}
}

// TestRuntimeLoggerRejectsBadLevel verifies behavior for the covered scenario.
func TestRuntimeLoggerRejectsBadLevel(t *testing.T) {
	cfg := config.Default("").Logging
	cfg.Level = "shouty"
	if _, err := newRuntimeLogger(io.Discard, "vboard", false, cfg, nil); err == nil {
		t.Fatal("expected level parse error")
	}
}

// TestRunTUIModeWritesRuntimeLogsToFileOnly verifies TUI runtime logs stay out of stderr and persist to the dev log file.
func TestRunTUIModeWritesRuntimeLogsToFileOnly(t *testing.T) {
	workspace := isolateEnv(t)
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(m tea.Model) program { return fakeProgram{model: m} }

	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)
	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"--dev", "--seed", seedPath}, io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(stderr.String()); got != "" {
		t.Fatalf("expected no runtime stderr output in TUI mode, got %q", got)
	}

	logDir := filepath.Join(workspace, ".vboard", "log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var logPath string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".log") {
			logPath = filepath.Join(logDir, entry.Name())
			break
		}
	}
	if logPath == "" {
		t.Fatalf("expected a .log file in %s, got %v", logDir, entries)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"starting tui program loop", "seed imported", "dev file logging enabled"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %q in dev log, got %q", want, content)
		}
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies workspace-root resolution behavior.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/test\n")
	nested := filepath.Join(root, "cmd", "vboard")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); filepath.Clean(got) != filepath.Clean(root) {
		t.Fatalf("expected workspace root %q, got %q", root, got)
	}
}

// TestDevLogFilePathResolvesAgainstWorkspaceRoot verifies relative log dirs anchor at workspace root.
func TestDevLogFilePathResolvesAgainstWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/test\n")
	nested := filepath.Join(root, "internal", "tui")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(nested)

	got, err := devLogFilePath("", "vboard/dev", time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	normalize := func(p string) string {
		return strings.TrimPrefix(filepath.Clean(p), "/private")
	}
	want := filepath.Join(root, ".vboard", "log", "vboard-dev-20260222.log")
	if normalize(got) != normalize(want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

// TestSanitizeLogFileStem verifies behavior for the covered scenario.
func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{
		"":           "vboard",
		"  ":         "vboard",
		"/":          "vboard",
		"my board":   "my-board",
		`team\a:b`:   "team-a-b",
		"vboard-dev": "vboard-dev",
	}
	for in, want := range cases {
		if got := sanitizeLogFileStem(in); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}
