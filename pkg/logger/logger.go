package logger

import (
	"io"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelDebug
	LevelTrace
)

type Logger struct {
	sugar     *zap.SugaredLogger
	out       io.Writer
	prefix    string
	flags     int
	level     LogLevel
	isVerbose bool
}

type Option func(*Logger)

func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
	}
}

func WithPrefix(prefix string) Option {
	return func(l *Logger) {
		l.prefix = prefix
	}
}

// WithFlags accepts the standard log package flags. Zero disables timestamps.
func WithFlags(flags int) Option {
	return func(l *Logger) {
		l.flags = flags
	}
}

func New(options ...Option) *Logger {
	l := &Logger{
		out:       os.Stdout,
		flags:     log.LstdFlags,
		level:     LevelInfo,
		isVerbose: false,
	}

	for _, opt := range options {
		opt(l)
	}

	l.sugar = newZapLogger(l.out, l.flags).Sugar()
	return l
}

func newZapLogger(w io.Writer, flags int) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	if flags == 0 {
		encCfg.TimeKey = ""
	} else {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func (l *Logger) SetVerbose(verbose bool) {
	l.isVerbose = verbose
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	if level >= LevelDebug {
		l.isVerbose = true
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(l.prefix+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(l.prefix+format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.isVerbose {
		l.sugar.Debugf(l.prefix+format, args...)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LevelTrace {
		l.sugar.Debugf(l.prefix+"TRACE: "+format, args...)
	}
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.sugar.Fatalf(l.prefix+format, args...)
}

// Sync flushes buffered entries. Errors from syncing terminals are ignored.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
