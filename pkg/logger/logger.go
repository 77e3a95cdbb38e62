// Package logger assembles the service's slog pipeline: JSON output to
// stdout and a rotating file, sensitive-attribute masking, and an optional
// Sentry fanout for warnings and errors.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log destinations and verbosity.
type Config struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	SentryDSN  string `mapstructure:"sentry_dsn"`
	Env        string `mapstructure:"-"`
}

// New builds the root logger. When cfg.File is set, output is duplicated to a
// lumberjack-rotated file; when cfg.SentryDSN is set, warn+ records are also
// shipped to Sentry. The returned closer flushes Sentry on shutdown.
func New(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		})
	}

	level := parseLevel(cfg.Level)
	json := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})

	handlers := []slog.Handler{json}
	closer := func() {}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
		}); err != nil {
			return nil, nil, err
		}

		handlers = append(handlers, slogsentry.Option{Level: slog.LevelWarn}.NewSentryHandler())
		closer = func() { sentry.Flush(2 * time.Second) }
	}

	root := slog.New(NewMaskingHandler(newFanoutHandler(handlers)))
	slog.SetDefault(root)
	return root, closer, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
