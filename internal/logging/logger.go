// Package logging provides structured logging for the patch engine.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger writing JSON records to a file.
type Logger struct {
	zap *zap.Logger
}

// New creates a Logger writing to the given file. An empty path disables
// logging entirely. Development mode switches to the readable encoder config.
func New(logPath string, development bool) (*Logger, error) {
	if logPath == "" {
		return &Logger{zap: zap.NewNop()}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logFile),
		zapcore.InfoLevel,
	)

	return &Logger{zap: zap.New(core)}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Close syncs the logger; call on shutdown.
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// Parsed logs the shape of the document a run starts from.
func (l *Logger) Parsed(files, hunks int) {
	l.zap.Info("patch parsed",
		zap.Int("files", files),
		zap.Int("hunks", hunks),
	)
}

// FileOutcome logs the per-file result of a dry run or apply.
func (l *Logger) FileOutcome(path string, dryRun bool, offset int, err error) {
	fields := []zap.Field{
		zap.String("file", path),
		zap.Bool("dry_run", dryRun),
		zap.Int("offset", offset),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		l.zap.Info("file failed", fields...)
		return
	}
	l.zap.Info("file applied", fields...)
}

// CheckDone logs the aggregate result of a validation call.
func (l *Logger) CheckDone(kind string, ok bool, duration time.Duration) {
	l.zap.Info("check done",
		zap.String("kind", kind),
		zap.Bool("ok", ok),
		zap.Duration("duration", duration),
	)
}
