package tui

import (
	charmLog "github.com/charmbracelet/log"
)

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the clipboard writer used by the copy-title key.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyToClipboard = write
		}
	}
}

// WithLogger sets the logger for measurement and action diagnostics.
func WithLogger(logger *charmLog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTitle overrides the header title.
func WithTitle(title string) Option {
	return func(m *Model) {
		if title != "" {
			m.title = title
		}
	}
}
