package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. It is a no-op until Initialize runs so
// packages and tests can log unconditionally.
var L = zap.NewNop().Sugar()

// Initialize builds the global logger. jsonOutput selects machine-readable
// output; otherwise a compact console encoder is used.
func Initialize(jsonOutput bool, debug bool) error {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		z, err := cfg.Build()
		if err != nil {
			return err
		}
		L = z.Sugar()
		return nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = nil
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		level,
	)
	L = zap.New(core).Sugar()
	return nil
}

// Component returns a named child of the global logger, e.g. "merge" or
// "scrape.linkedin".
func Component(name string) *zap.SugaredLogger {
	return L.Named(name)
}

// Or returns l, or a component logger when l is nil.
func Or(l *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if l != nil {
		return l
	}
	return Component(name)
}

// Sync flushes buffered entries.
func Sync() {
	_ = L.Sync()
}
