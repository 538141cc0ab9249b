// Package logging constructs the zap logger shared across subsystems.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap logger writing JSON to stdout, or a
// human-friendly console logger when dev is true. Subsystems that log
// derive their own named child via Named so log lines can be filtered
// per component (e.g. "browser.pool", "workflow.engine").
func New(dev bool) *zap.Logger {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stdout"}
	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than crash the whole process
		// over a logging misconfiguration.
		return zap.NewNop()
	}
	return logger
}

// NewFromEnv honors LEGACY_WEB_ANALYZER_DEV=1 to switch to console output.
func NewFromEnv() *zap.Logger {
	dev := os.Getenv("LEGACY_WEB_ANALYZER_DEV") == "1"
	return New(dev)
}
