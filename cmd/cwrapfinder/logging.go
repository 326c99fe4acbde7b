package main

import (
	"log/slog"
	"os"
)

// newLogger builds the one *slog.Logger each subcommand threads down into
// the runner, matching SPEC_FULL.md §1's "constructed in cmd/cwrapfinder,
// threaded down" rule — library packages never reach for a global logger.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugLogging {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
