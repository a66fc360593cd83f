// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package logging builds the structured loggers used across the CLI
// tools. Diagnostics go to stderr so command output stays pipeable.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger writing to w. format is "text" or "json";
// level is one of "debug", "info", "warn", "error".
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	return slog.New(handler), nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup creates a stderr logger and installs it as slog's default.
func Setup(format, level string) (*slog.Logger, error) {
	log, err := New(os.Stderr, format, level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}
