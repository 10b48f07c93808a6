package config

import (
	"fmt"
	"io"
	"os"

	"github.com/orandin/lumberjackrus"
	"github.com/sirupsen/logrus"
)

// Log file rotation
const (
	logFileMaxBackups = 3
	logFileMaxAge     = 7 // days
)

// NewLogger builds the application logger: text output on stderr at the
// configured level, plus a rotating JSON file when LogFile is set
func NewLogger(cfg *Config) (*logrus.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg *Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	if cfg.LogFile == "" {
		return logger, nil
	}

	hook, err := lumberjackrus.NewHook(
		&lumberjackrus.LogFile{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogFileSize,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAge,
			Compress:   false,
			LocalTime:  true,
		},
		level,
		&logrus.JSONFormatter{},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file hook: %w", err)
	}
	logger.AddHook(hook)
	return logger, nil
}
