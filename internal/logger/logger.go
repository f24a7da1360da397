// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger owns the process-wide zap logger. Library packages take a
// *zap.SugaredLogger at construction; only cmd/ calls Initialize.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger. It starts as a no-op so packages can log
// before Initialize runs.
var Logger = zap.NewNop().Sugar()

// Initialize replaces Logger. jsonOutput selects the production JSON
// encoder; otherwise a console encoder writes to stderr. verbosity is the
// count of -v flags.
func Initialize(jsonOutput bool, verbosity int) error {
	level := zap.NewAtomicLevelAt(VerbosityToLevel(verbosity))

	var zl *zap.Logger
	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		cfg.OutputPaths = []string{"stderr"}
		built, err := cfg.Build()
		if err != nil {
			return err
		}
		zl = built
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stderr),
			level,
		))
	}

	Logger = zl.Sugar()
	return nil
}

// ComponentLogger returns a logger named for one component, e.g. "intake".
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Logger.Sync()
}

// VerbosityToLevel maps -v counts to zap levels: none is warn, -v is
// info, -vv and above is debug.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
