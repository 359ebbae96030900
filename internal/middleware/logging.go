package middleware

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig configures the logging middleware
type LoggingConfig struct {
	Config

	// MinLevel is the level success entries are written at, so the
	// backend's configured level gates them. Errors always log at
	// error level. Defaults to info.
	MinLevel logrus.Level

	// Logger is the backend to write to, injected at construction
	// time. Nil uses the standard logger.
	Logger logrus.FieldLogger
}

// Logging records the duration of the remainder of the chain and writes
// a structured entry. Errors are logged and rethrown unchanged.
type Logging struct {
	cfg LoggingConfig
}

// NewLogging creates the logging middleware
func NewLogging(cfg LoggingConfig) *Logging {
	if cfg.MinLevel == 0 {
		cfg.MinLevel = logrus.InfoLevel
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Logging{cfg: cfg}
}

func (l *Logging) Name() string   { return "logging" }
func (l *Logging) Config() Config { return l.cfg.Config }

func (l *Logging) Execute(ctx context.Context, mctx *Context, next Next) error {
	start := time.Now()
	entry := l.cfg.Logger.WithFields(logrus.Fields{
		"request_id": mctx.RequestID,
		"path":       mctx.Path,
		"chain":      mctx.ChainID,
	})

	err := next(ctx)
	duration := time.Since(start)

	if err != nil {
		entry.WithField("duration_ms", duration.Milliseconds()).
			WithError(err).
			Error("Operation failed")
		return err
	}

	entry.WithField("duration_ms", duration.Milliseconds()).
		Log(l.cfg.MinLevel, "Operation completed")
	return nil
}
