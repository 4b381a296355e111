package monitor

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/signalalpha/cryptomkt-go/internal/config"
)

// Logger wraps logrus logger
type Logger struct {
	*logrus.Logger
	closer io.Closer
}

// NewLogger creates a new logger instance. Console output goes to
// console, or to os.Stderr when it is nil.
func NewLogger(cfg config.LogConfig, console io.Writer) *Logger {
	if console == nil {
		console = os.Stderr
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var rotator *lumberjack.Logger
	if cfg.Output == "file" || cfg.Output == "both" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}

	var writers []io.Writer
	switch cfg.Output {
	case "file":
		writers = []io.Writer{rotator}
	case "both":
		writers = []io.Writer{console, rotator}
	default:
		writers = []io.Writer{console}
	}

	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	l := &Logger{Logger: logger}
	if rotator != nil {
		l.closer = rotator
	}
	return l
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
