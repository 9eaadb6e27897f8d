// Package logger sets up the process-wide zap logger and exposes it as a
// logr.Logger, optionally writing to a rotating file.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/oakwood-commons/gridx/pkg/settings"
)

type loggerContextKey struct{}

const (
	CommitKey    = "commit"
	VersionKey   = "version"
	BuildTimeKey = "build_time"
	GoVersionKey = "go_version"
	TimeStampKey = "timestamp"
	MessageKey   = "message"
)

// Options configure the global logger. The zero value logs JSON at info
// level to stderr.
type Options struct {
	// Level is the minimum zap level; negative values enable logr V levels.
	Level int8
	// File, when set, sends logs to a rotating file instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Writer overrides the destination entirely. Used by tests and by the
	// TUI, which cannot share the terminal with log output.
	Writer io.Writer
}

var (
	once sync.Once

	globalZapLogger  *zap.Logger
	globalLogrLogger *logr.Logger
	rotator          *lumberjack.Logger

	defaultNoopLogger = logr.Discard()
)

func (o Options) sink() zapcore.WriteSyncer {
	switch {
	case o.Writer != nil:
		return zapcore.AddSync(o.Writer)
	case o.File != "":
		size := o.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		backups := o.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		rotator = &lumberjack.Logger{Filename: o.File, MaxSize: size, MaxBackups: backups}
		return zapcore.AddSync(rotator)
	default:
		return zapcore.Lock(os.Stderr)
	}
}

// Setup initializes the global logger once. Later calls are no-ops and
// return the logger built by the first.
func Setup(opts Options) *logr.Logger {
	once.Do(func() {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderCfg.TimeKey = TimeStampKey
		encoderCfg.MessageKey = MessageKey

		goVersion := "unknown"
		if bi, ok := debug.ReadBuildInfo(); ok {
			goVersion = bi.GoVersion
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			opts.sink(),
			zap.NewAtomicLevelAt(zapcore.Level(opts.Level)),
		).With([]zapcore.Field{
			zap.String(CommitKey, settings.VersionInformation.Commit),
			zap.String(VersionKey, settings.VersionInformation.BuildVersion),
			zap.String(BuildTimeKey, settings.VersionInformation.BuildTime),
			zap.String(GoVersionKey, goVersion),
		})

		globalZapLogger = zap.New(core,
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
		)
		gl := zapr.NewLogger(globalZapLogger)
		globalLogrLogger = &gl
	})
	if globalLogrLogger == nil {
		return &defaultNoopLogger
	}
	return globalLogrLogger
}

// Get initializes the global logger at logLevel, writing to stderr.
func Get(logLevel int8) *logr.Logger {
	return Setup(Options{Level: logLevel})
}

// WithLogger attaches log to ctx.
func WithLogger(ctx context.Context, log *logr.Logger) context.Context {
	if lp, ok := ctx.Value(loggerContextKey{}).(*logr.Logger); ok && lp == log {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger in ctx, falling back to the global logger
// and then to a no-op logger.
func FromContext(ctx context.Context) *logr.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(*logr.Logger); ok {
		return log
	}
	if globalLogrLogger != nil {
		return globalLogrLogger
	}
	return &defaultNoopLogger
}

// Sync flushes buffered entries and closes the log file, if any. Call it
// from main before exiting.
func Sync() {
	if globalZapLogger != nil {
		if err := globalZapLogger.Sync(); err != nil && !isIgnorableSyncError(err) {
			fmt.Fprintf(os.Stderr, "WARNING: failed to sync zap logger: %v\n", err)
		}
	}
	if rotator != nil {
		_ = rotator.Close()
	}
}

// isIgnorableSyncError returns true for Sync errors on pipes and TTYs.
func isIgnorableSyncError(err error) bool {
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EBADF) {
		return true
	}
	return strings.Contains(err.Error(), "The handle is invalid")
}

// Noop returns a logger that discards everything.
func Noop() *logr.Logger {
	return &defaultNoopLogger
}
