// Package logger builds the process logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config of the process logger.
type Config struct {
	// Verbosity from 0 (panic) to 5 (debug); 6 enables trace.
	Verbosity int
	Format    string
	Color     bool
	// SentryDSN enables forwarding of error entries. Empty disables it.
	SentryDSN string
}

// DefaultConfig logs info level text.
func DefaultConfig() Config {
	return Config{
		Verbosity: int(logrus.InfoLevel),
		Format:    FormatText,
	}
}

// Level converts the verbosity into a logrus level.
func (c Config) Level() logrus.Level {
	switch {
	case c.Verbosity < 0:
		return logrus.PanicLevel
	case c.Verbosity > int(logrus.TraceLevel):
		return logrus.TraceLevel
	}
	return logrus.Level(c.Verbosity)
}

// New builds a logger writing to stderr.
func New(cfg Config) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput builds a logger writing to out.
func NewWithOutput(cfg Config, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(cfg.Level())

	switch cfg.Format {
	case FormatText, "":
		log.SetFormatter(&logrus.TextFormatter{
			ForceColors:     cfg.Color,
			DisableColors:   !cfg.Color,
			FullTimestamp:   true,
			TimestampFormat: "01-02|15:04:05.000",
		})
	case FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.Timeout = 5 * time.Second
		hook.StacktraceConfiguration.Enable = true
		log.AddHook(hook)
	}
	return log, nil
}

// Module returns the entry components log with.
func Module(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("module", name)
}
