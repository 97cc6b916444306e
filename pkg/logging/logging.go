// Package logging points the global zerolog logger at a file. The UI owns
// the terminal, so nothing is ever written to stdout or stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Configure sets the log destination and level. An empty path disables
// logging. Missing directories are created. The returned closer releases
// the file and is never nil.
func Configure(path, level string) (io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nopCloser{}, err
	}

	if strings.TrimSpace(path) == "" {
		Disable()
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nopCloser{}, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nopCloser{}, fmt.Errorf("unable to open log file: %w", err)
	}

	SetOutput(f, lvl)
	return f, nil
}

// SetOutput sends the global logger to w at level lvl
func SetOutput(w io.Writer, lvl zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Disable silences the global logger
func Disable() {
	log.Logger = zerolog.Nop()
}

// ParseLevel parses a level name; an empty name means info
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
