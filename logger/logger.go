// Package logger provides a process-wide zap logger that can fan out to
// multiple writers (stdout, the interactive UI's log buffer, test sinks).
// Init must be called early in the application lifecycle; until then a plain
// stderr logger is used so nothing is lost.
// Functions like AddOutput and SetEnabled return errors if called before Init.
package logger

import (
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrNotInitialized = errors.New("logger not initialized: call logger.Init() first")

// Logger writes every encoded entry to all registered outputs.
type Logger struct {
	mu      sync.Mutex
	outputs []io.Writer
	enabled bool

	level zap.AtomicLevel
	zl    *zap.Logger
}

var (
	globalLogger *Logger
	once         sync.Once

	fallbackOnce sync.Once
	fallback     *zap.Logger

	globalBuffer *LogBuffer
	bufferOnce   sync.Once
)

// GetGlobalLogBuffer returns the global log buffer
func GetGlobalLogBuffer() *LogBuffer {
	bufferOnce.Do(func() {
		globalBuffer = NewLogBuffer(1000) // Keep last 1000 log entries
	})
	return globalBuffer
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// New builds a standalone Logger. Most callers want Init instead.
func New(name string, outputs ...io.Writer) *Logger {
	l := &Logger{
		outputs: outputs,
		enabled: true,
		level:   zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), l, l.level)
	l.zl = zap.New(core)
	if name != "" {
		l.zl = l.zl.Named(name)
	}
	return l
}

// Write implements zapcore.WriteSyncer by copying p to every output.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return len(p), nil
	}
	var errs []error
	for _, output := range l.outputs {
		if _, err := output.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return len(p), errors.Join(errs...)
}

func (l *Logger) Sync() error { return nil }

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger { return l.zl }

// Init initializes the global logger
func Init(prefix string, writeToStdout bool) {
	once.Do(func() {
		outputs := []io.Writer{}
		if writeToStdout {
			outputs = append(outputs, os.Stdout)
		}
		globalLogger = New(prefix, outputs...)
	})
}

// AddOutput adds an additional output writer (e.g., for TUI log buffer).
// Returns an error if called before Init.
func AddOutput(w io.Writer) error {
	if globalLogger == nil {
		return ErrNotInitialized
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.outputs = append(globalLogger.outputs, w)
	return nil
}

// RemoveOutput removes an output writer.
// Returns an error if called before Init.
func RemoveOutput(w io.Writer) error {
	if globalLogger == nil {
		return ErrNotInitialized
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	kept := globalLogger.outputs[:0]
	for _, output := range globalLogger.outputs {
		if output != w {
			kept = append(kept, output)
		}
	}
	globalLogger.outputs = kept
	return nil
}

// SetEnabled enables or disables logging.
// Returns an error if called before Init.
func SetEnabled(enabled bool) error {
	if globalLogger == nil {
		return ErrNotInitialized
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.enabled = enabled
	return nil
}

// SetLevel parses one of debug, info, warn, error.
func SetLevel(level string) error {
	if globalLogger == nil {
		return ErrNotInitialized
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	globalLogger.level.SetLevel(lvl)
	return nil
}

// L returns the structured logger. Before Init it falls back to stderr.
func L() *zap.Logger {
	if globalLogger != nil {
		return globalLogger.zl
	}
	fallbackOnce.Do(func() {
		fallback = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig()),
			zapcore.Lock(os.Stderr),
			zapcore.InfoLevel,
		))
	})
	return fallback
}

func sugar() *zap.SugaredLogger { return L().Sugar() }

// Debugf logs a debug-level formatted message
func Debugf(format string, v ...interface{}) { sugar().Debugf(format, v...) }

// Infof logs an info-level formatted message
func Infof(format string, v ...interface{}) { sugar().Infof(format, v...) }

// Warnf logs a warn-level formatted message
func Warnf(format string, v ...interface{}) { sugar().Warnf(format, v...) }

// Errorf logs an error-level formatted message
func Errorf(format string, v ...interface{}) { sugar().Errorf(format, v...) }
