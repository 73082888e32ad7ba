package utils

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLogLevel = "info"

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// GetLogger returns the process logger used by the cmd programs.
// Library packages take their logger as a dependency instead.
func GetLogger() *zap.SugaredLogger {
	once.Do(func() {
		if logger == nil {
			logger = MustLogger(DefaultLogLevel)
		}
	})
	return logger
}

// SetLogger replaces the process logger. It is not safe to call
// concurrently with GetLogger.
func SetLogger(l *zap.SugaredLogger) {
	logger = l
}

func MustLogger(level string) *zap.SugaredLogger {
	l, err := NewLogger(level)
	if err != nil {
		panic(err)
	}
	return l
}

func NewLogger(level string) (*zap.SugaredLogger, error) {
	if level == "" {
		level = DefaultLogLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(lvl),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "msg",
			LevelKey:    "level",
			TimeKey:     "time",
			EncodeLevel: zapcore.CapitalLevelEncoder,
			EncodeTime:  zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
