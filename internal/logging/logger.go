// Package logging provides the structured logger used across every
// component of the ingestion/retrieval service, plus the audit-sink
// capability that state-mutating operations write through.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the process-wide logger is constructed.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// JSON switches between JSON and console encoding. Production
	// deployments want JSON; local/CLI runs are easier to read in console form.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns sane defaults: info level, console encoding.
func DefaultConfig() Config {
	return Config{Level: "info", JSON: false}
}

// New builds a *zap.Logger from Config. Callers inject the result into
// every component constructor rather than reaching for a package-level
// singleton (see DESIGN.md "Global singletons" note).
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.JSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller()), nil
}

// NewNop returns a logger that discards everything, used in tests that
// don't care about log output.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
