// Package logging wraps log/slog so every component logs through one
// configured handler.
//
//	logging.Init(slog.LevelInfo, false)
//	log := logging.Component("zfs")
//	log.Warn("zpool status failed", "pool", name, "error", err)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// Init installs the process logger. Output goes to stderr so command output
// on stdout stays clean.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, level, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	InitWithHandler(handler)
}

// InitWithHandler installs a custom handler, mostly for tests.
func InitWithHandler(h slog.Handler) {
	l := slog.New(h)

	mu.Lock()
	logger = l
	mu.Unlock()

	slog.SetDefault(l)
}

// Discard silences all logging.
func Discard() {
	InitWithHandler(slog.NewTextHandler(io.Discard, nil))
}

func current() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(slog.LevelInfo, false)
	return current()
}

// Component returns a logger tagged with the component name.
func Component(name string) *slog.Logger {
	return current().With("component", name)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
