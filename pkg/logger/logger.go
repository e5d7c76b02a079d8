package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New builds a zap logger for the given environment. Local and dev environments get a
// human-readable console encoder; everything else logs JSON. An empty level keeps the
// environment default.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case envLocal, envDev:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig = consoleEncoderConfig()
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if level != "" {
		lvl := zapcore.InfoLevel
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Sync flushes the logger, ignoring the errors stdout/stderr return when they are terminals.
func Sync(l *zap.Logger) error {
	if err := l.Sync(); err != nil {
		if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrInvalid) {
			return nil
		}
		return err
	}
	return nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	colored := os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stack",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " | ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
		},
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			label := fmt.Sprintf("%-5s", strings.ToUpper(l.String()))
			if colored {
				enc.AppendString(levelColor(l) + label + "\x1b[0m")
				return
			}
			enc.AppendString(label)
		},
	}
}

func levelColor(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "\x1b[36m"
	case zapcore.InfoLevel:
		return "\x1b[32m"
	case zapcore.WarnLevel:
		return "\x1b[33m"
	case zapcore.ErrorLevel, zapcore.FatalLevel:
		return "\x1b[31m"
	default:
		return "\x1b[35m"
	}
}
