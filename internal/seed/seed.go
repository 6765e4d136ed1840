// Package seed reads read-only task lists used to populate a fresh session.
// Files may be TOML or YAML; both share one shape:
//
//	[[tasks]]
//	id = 1
//	text = "Plan sprint"
//	priority = "High"
//	status = "in progress"
//	box = { x = 0.0, y = 0.0, width = 180.0, height = 80.0 }
package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
)

// Format names a seed encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for file extensions other than .toml, .yaml and .yml.
var ErrUnknownFormat = errors.New("unknown seed format")

// File is the decoded seed document.
type File struct {
	Tasks []Task `toml:"tasks" yaml:"tasks"`
}

// Task is one seed entry. Priority and status accept the same loose spellings
// as the CLI; Box, when present, is fed to the placement engine as a measurement.
// A positive ID is kept on import so default positions repeat across runs.
type Task struct {
	ID       int64       `toml:"id,omitempty" yaml:"id,omitempty"`
	Text     string      `toml:"text" yaml:"text"`
	Priority string      `toml:"priority" yaml:"priority"`
	Status   string      `toml:"status" yaml:"status"`
	Box      *domain.Box `toml:"box,omitempty" yaml:"box,omitempty"`
}

// FormatFor infers the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads and decodes path. A missing file is an error; callers decide
// whether an absent default seed matters.
func Load(path string) (File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return File{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed: %w", err)
	}
	return Parse(content, format)
}

// Parse decodes content in the given format.
func Parse(content []byte, format Format) (File, error) {
	var f File
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(content, &f); err != nil {
			return File{}, fmt.Errorf("decode toml seed: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(content, &f); err != nil {
			return File{}, fmt.Errorf("decode yaml seed: %w", err)
		}
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return f, nil
}

// Snapshot normalizes the seed into an importable snapshot.
func (f File) Snapshot() (app.Snapshot, error) {
	snap := app.Snapshot{Version: app.SnapshotVersion, Tasks: make([]app.SnapshotTask, 0, len(f.Tasks))}
	for i, task := range f.Tasks {
		priority, err := domain.ParsePriority(task.Priority)
		if err != nil {
			return app.Snapshot{}, fmt.Errorf("tasks[%d].priority %q: %w", i, task.Priority, err)
		}
		status, err := domain.ParseStatus(task.Status)
		if err != nil {
			return app.Snapshot{}, fmt.Errorf("tasks[%d].status %q: %w", i, task.Status, err)
		}
		snap.Tasks = append(snap.Tasks, app.SnapshotTask{
			ID:       task.ID,
			Text:     task.Text,
			Priority: priority,
			Status:   status,
			Box:      task.Box,
		})
	}
	if err := snap.Validate(); err != nil {
		return app.Snapshot{}, err
	}
	return snap, nil
}
