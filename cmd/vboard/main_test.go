package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
	"github.com/evanschultz/vboard/internal/tui"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("VBOARD_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram records the model it was built with.
type fakeProgram struct {
	model  tea.Model
	runErr error
}

// Run returns the configured error.
func (f fakeProgram) Run() (tea.Model, error) {
	return f.model, f.runErr
}

// isolateEnv points every platform path at temp dirs and moves into a fresh workspace.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("VBOARD_CONFIG", "")
	t.Setenv("VBOARD_APP_NAME", "")
	workspace := t.TempDir()
	t.Chdir(workspace)
	return workspace
}

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const seedYAML = `
tasks:
  - text: Anchor
    priority: high
    status: in_progress
    box: {x: 10, y: 10, width: 180, height: 80}
  - text: Second
    priority: medium
  - text: Third
  - text: "   "
`

// TestRunVersion verifies behavior for the covered scenario.
func TestRunVersion(t *testing.T) {
	isolateEnv(t)
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunStartsProgram verifies the default command launches the TUI with a seeded service.
func TestRunStartsProgram(t *testing.T) {
	workspace := isolateEnv(t)
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	var built tea.Model
	programFactory = func(m tea.Model) program {
		built = m
		return fakeProgram{model: m}
	}

	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)
	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"--seed", seedPath}, io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := built.(tui.Model); !ok {
		t.Fatalf("expected tui.Model, got %T", built)
	}
	if got := strings.TrimSpace(stderr.String()); got != "" {
		t.Fatalf("expected muted console while the TUI runs, got %q", got)
	}
}

// TestRunProgramErrorIsWrapped verifies behavior for the covered scenario.
func TestRunProgramErrorIsWrapped(t *testing.T) {
	isolateEnv(t)
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(tea.Model) program { return fakeProgram{runErr: io.ErrUnexpectedEOF} }

	err := run(context.Background(), nil, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "run tui program") {
		t.Fatalf("expected wrapped tui error, got %v", err)
	}
}

// TestRunUnknownCommand verifies behavior for the covered scenario.
func TestRunUnknownCommand(t *testing.T) {
	isolateEnv(t)
	if err := run(context.Background(), []string{"bogus"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected unknown command error")
	}
}

// TestRunPlaceJSON verifies seeded boxes are kept and every card ends up collision free.
func TestRunPlaceJSON(t *testing.T) {
	workspace := isolateEnv(t)
	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"--seed", seedPath, "place", "--format", "json"}, &out, io.Discard); err != nil {
		t.Fatalf("run(place) error = %v", err)
	}
	var rows []placementRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode place output: %v\n%s", err, out.String())
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 placed cards (blank text skipped), got %#v", rows)
	}
	if rows[0].Text != "Anchor" || rows[0].Source != "seed" || rows[0].X != 10 || rows[0].Y != 10 {
		t.Fatalf("expected seeded anchor untouched, got %#v", rows[0])
	}
	if rows[0].Priority != "High" || rows[0].Status != "In Progress" {
		t.Fatalf("expected normalized fields, got %#v", rows[0])
	}
	for _, row := range rows[1:] {
		if row.Source != "default" || row.Width != app.ProvisionalCardWidth || row.Height != app.ProvisionalCardHeight {
			t.Fatalf("expected provisional size for unseeded card, got %#v", row)
		}
	}
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			a := layoutBox(rows[i])
			b := layoutBox(rows[j])
			if layout.Collide(a, b) {
				t.Fatalf("cards %q and %q collide: %#v %#v", rows[i].Text, rows[j].Text, a, b)
			}
		}
	}
}

// TestRunPlaceIsRepeatableForSeedIDs verifies seeded ids yield the same default layout on every run.
func TestRunPlaceIsRepeatableForSeedIDs(t *testing.T) {
	workspace := isolateEnv(t)
	seedPath := writeFile(t, workspace, "seed.yaml", `
tasks:
  - id: 101
    text: Alpha
  - id: 202
    text: Beta
    priority: high
  - id: 303
    text: Gamma
`)

	place := func() []byte {
		var out bytes.Buffer
		if err := run(context.Background(), []string{"--seed", seedPath, "place", "--format", "json"}, &out, io.Discard); err != nil {
			t.Fatalf("run(place) error = %v", err)
		}
		return out.Bytes()
	}
	first := place()
	second := place()
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical place output across runs\nfirst:\n%s\nsecond:\n%s", first, second)
	}

	var rows []placementRow
	if err := json.Unmarshal(first, &rows); err != nil {
		t.Fatalf("decode place output: %v\n%s", err, first)
	}
	if len(rows) != 3 || rows[0].ID != 101 || rows[1].ID != 202 || rows[2].ID != 303 {
		t.Fatalf("expected seeded ids kept, got %#v", rows)
	}
}

// TestRunPlaceTable verifies behavior for the covered scenario.
func TestRunPlaceTable(t *testing.T) {
	workspace := isolateEnv(t)
	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"place", "--seed", seedPath}, &out, io.Discard); err != nil {
		t.Fatalf("run(place) error = %v", err)
	}
	for _, want := range []string{"Source", "Anchor", "Second", "Third", "seed", "default"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in table output, got\n%s", want, out.String())
		}
	}
}

// TestRunPlaceErrors verifies behavior for the covered scenario.
func TestRunPlaceErrors(t *testing.T) {
	workspace := isolateEnv(t)
	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "seed required", args: []string{"place"}, want: "place requires --seed"},
		{name: "bad format", args: []string{"--seed", seedPath, "place", "--format", "xml"}, want: "unsupported place format"},
		{name: "missing explicit seed", args: []string{"--seed", filepath.Join(workspace, "nope.yaml"), "place"}, want: "load seed"},
		{name: "unknown seed extension", args: []string{"--seed", writeFile(t, workspace, "seed.txt", "x"), "place"}, want: "unknown seed format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(context.Background(), tc.args, io.Discard, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

// TestRunExportCommandWritesSnapshot verifies file and stdout export in both formats.
func TestRunExportCommandWritesSnapshot(t *testing.T) {
	workspace := isolateEnv(t)
	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)

	outPath := filepath.Join(workspace, "out", "snapshot.json")
	if err := run(context.Background(), []string{"--seed", seedPath, "export", "--out", outPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Version != app.SnapshotVersion || len(snap.Tasks) != 3 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if snap.Tasks[0].Box == nil || snap.Tasks[1].Box != nil {
		t.Fatalf("expected only the seeded card to carry a box, got %#v", snap.Tasks)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"--seed", seedPath, "export", "--format", "yaml"}, &out, io.Discard); err != nil {
		t.Fatalf("run(export yaml) error = %v", err)
	}
	if !strings.Contains(out.String(), "tasks:") || !strings.Contains(out.String(), "text: Anchor") {
		t.Fatalf("expected yaml snapshot, got %q", out.String())
	}

	err = run(context.Background(), []string{"export", "--format", "csv"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

// TestRunSQLiteBackendAndConfigEnv verifies the sqlite session store and VBOARD_CONFIG.
func TestRunSQLiteBackendAndConfigEnv(t *testing.T) {
	workspace := isolateEnv(t)
	seedPath := writeFile(t, workspace, "seed.yaml", seedYAML)
	cfgPath := writeFile(t, workspace, "config.toml", "[storage]\nbackend = \"sqlite\"\n\n[seed]\npath = \""+filepath.ToSlash(seedPath)+"\"\n")
	t.Setenv("VBOARD_CONFIG", cfgPath)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"export"}, &out, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Tasks) != 3 || snap.Tasks[2].Text != "Third" {
		t.Fatalf("expected seed loaded from config into sqlite, got %#v", snap.Tasks)
	}
}

// TestRunMissingDefaultSeedStartsEmpty verifies behavior for the covered scenario.
func TestRunMissingDefaultSeedStartsEmpty(t *testing.T) {
	isolateEnv(t)
	var out bytes.Buffer
	if err := run(context.Background(), []string{"export"}, &out, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Tasks) != 0 {
		t.Fatalf("expected empty board, got %#v", snap.Tasks)
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies behavior for the covered scenario.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	workspace := isolateEnv(t)
	cfgPath := writeFile(t, workspace, "vboard.toml", "[logging]\nlevel = \"loud\"\n")
	err := run(context.Background(), []string{"--config", cfgPath, "export"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

// TestRunServeStopsOnCancel verifies serve shuts down cleanly once ctx is done.
func TestRunServeStopsOnCancel(t *testing.T) {
	isolateEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	if err := run(ctx, []string{"serve", "--http", "127.0.0.1:0"}, io.Discard, &stderr); err != nil {
		t.Fatalf("run(serve) error = %v", err)
	}
	if !strings.Contains(stderr.String(), "serving board") {
		t.Fatalf("expected serve log on console, got %q", stderr.String())
	}
}

// TestRunPathsCommand verifies behavior for the covered scenario.
func TestRunPathsCommand(t *testing.T) {
	isolateEnv(t)
	var out strings.Builder
	if err := run(context.Background(), []string{"--app", "boardx", "--dev", "paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	output := out.String()
	for _, want := range []string{"app: boardx", "dev_mode: true", "boardx-dev", "seed:", "log_dir:"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in paths output, got %q", want, output)
		}
	}
}

// TestParseBoolEnv verifies behavior for the covered scenario.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("VBOARD_BOOL_TEST", "true")
	got, ok := parseBoolEnv("VBOARD_BOOL_TEST")
	if !ok || !got {
		t.Fatalf("expected true bool env parse, got value=%t ok=%t", got, ok)
	}

	t.Setenv("VBOARD_BOOL_TEST", "not-bool")
	if _, ok = parseBoolEnv("VBOARD_BOOL_TEST"); ok {
		t.Fatal("expected invalid bool env to return ok=false")
	}
}

func layoutBox(r placementRow) domain.Box {
	return domain.Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
