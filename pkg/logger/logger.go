package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Debug mode uses the development encoder on
// stdout; otherwise the production JSON encoder is used at the given level.
func New(level string, debug bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if debug {
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stdout"}
		logger, err = z.Build()
	} else {
		lvl, parseErr := zapcore.ParseLevel(level)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, parseErr)
		}
		z := zap.NewProductionConfig()
		z.Level = zap.NewAtomicLevelAt(lvl)
		logger, err = z.Build()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
