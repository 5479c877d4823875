// Package logging builds the zap loggers used across the scout.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger. Development mode means colored console output
// at debug level; production mode means JSON at info level. A non-empty
// level overrides either default, so a production run can be turned up to
// debug without switching encoders.
func New(development bool, level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if development {
		lvl = zapcore.DebugLevel
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"

	// Stack traces on warnings are noise during a crawl where transient
	// page failures are routine; errors still carry them.
	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
