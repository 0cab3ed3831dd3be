// Package logging wraps zap with the engine's domain-specific log events:
// per-task outcomes and per-run summaries, at a level a streaming copy/verify
// CLI actually wants on stderr.
package logging

import (
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with the engine's vocabulary. The zero value is
// not usable; construct with New. A nil *Logger is safe to call methods on —
// callers that don't want logging can simply pass nil as Options.Logger.
type Logger struct {
	zap *zap.Logger
}

// New builds a console logger writing to stderr. verbose enables debug-level
// per-task lines; otherwise only run summaries, mismatches and errors are
// emitted.
func New(verbose bool) (*Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.TimeKey = ""
	encoder := zapcore.NewConsoleEncoder(cfg)

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return &Logger{zap: zap.New(core)}, nil
}

// NewNop returns a Logger that discards everything, for tests and for
// library callers that never set Options.Logger.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zap.Sync()
}

// TaskCopied logs a single successful copy, at debug level: run summaries
// carry the aggregate, so per-file noise stays out of the default level.
func (l *Logger) TaskCopied(dest, digest string, bytes int64) {
	if l == nil {
		return
	}
	l.zap.Debug("copied",
		zap.String("dest", dest),
		zap.String("digest", digest),
		zap.Int64("bytes", bytes),
	)
}

// TaskVerified logs a single verify outcome. Mismatches surface at warn
// level regardless of verbosity; matches stay at debug.
func (l *Logger) TaskVerified(path string, matched, fromCache bool) {
	if l == nil {
		return
	}
	fields := []zap.Field{zap.String("path", path), zap.Bool("from_cache", fromCache)}
	if matched {
		l.zap.Debug("verified", fields...)
	} else {
		l.zap.Warn("digest mismatch", fields...)
	}
}

// TaskError logs a per-task failure. Task errors never abort a run, but
// they're always worth a line.
func (l *Logger) TaskError(path string, err error) {
	if l == nil {
		return
	}
	l.zap.Error("task failed", zap.String("path", path), zap.Error(err))
}

// RunFinished logs the terminal summary of a copy-run or verify-run. kind is
// "copy" or "verify". bytesMoved is formatted human-readable (e.g. "12 MiB")
// since run summaries are read by a person, not parsed.
func (l *Logger) RunFinished(kind string, total, succeeded, failed int, bytesMoved int64) {
	if l == nil {
		return
	}
	l.zap.Info("run finished",
		zap.String("kind", kind),
		zap.Int("total", total),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.String("moved", humanize.IBytes(uint64(bytesMoved))),
	)
}
