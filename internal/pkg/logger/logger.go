package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config selects where records go and how they are encoded
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"

	// File receives records when set. Console is written as well when
	// AlsoConsole is true, and always when File is empty.
	File        string
	Console     io.Writer // defaults to os.Stderr
	AlsoConsole bool

	AddSource bool
}

// redactedKeys are attribute keys whose values never reach a log sink
var redactedKeys = map[string]bool{
	"access":        true,
	"access_token":  true,
	"authorization": true,
	"code":          true,
	"code_verifier": true,
	"otp":           true,
	"password":      true,
	"refresh":       true,
	"refresh_token": true,
	"token":         true,
}

// SetupLogger creates a configured slog logger. The returned closer releases
// the log file, if one was opened.
func SetupLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	closer := io.Closer(nopCloser{})

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, file)
		closer = file
	}
	if cfg.File == "" || cfg.AlsoConsole {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, console)
	}

	return slog.New(NewHandler(io.MultiWriter(writers...), cfg)), closer, nil
}

// NewHandler returns the JSON or text handler for cfg writing to w
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: Redact,
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Redact masks credentials logged under a well-known key.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] && a.Value.Kind() == slog.KindString && a.Value.String() != "" {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

// ParseLevel converts a string to slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// DefaultLogFile returns ~/.config/salesdesk/<component>.log
func DefaultLogFile(component string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "salesdesk", component+".log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
