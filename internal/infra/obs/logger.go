package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions selects the handler and sinks of the application logger.
type LoggerOptions struct {
	Env   string
	Level string
	// File, when set, receives a JSON copy of every record with size-based rotation.
	File string
}

// NewLogger configures slog logger with colorful dev output and JSON for production-like envs.
func NewLogger(opts LoggerOptions) *slog.Logger {
	level := ParseLevel(opts.Level)
	var handler slog.Handler
	if opts.Env == "dev" || opts.Env == "local" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			AddSource:  true,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	if opts.File != "" {
		file := slog.NewJSONHandler(RotatingFile(opts.File), &slog.HandlerOptions{Level: level})
		handler = fanout{handler, file}
	}
	return slog.New(handler)
}

// RotatingFile returns a writer that rotates the log file at 50MB and keeps a week of backups.
func RotatingFile(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     7,
		Compress:   true,
	}
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
