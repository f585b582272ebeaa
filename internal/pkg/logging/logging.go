package logging

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config mirrors the logger settings used across services: a level plus an
// optional rotated log file.
type Config struct {
	Level      string
	FileName   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func DefaultConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Sampling = nil
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return logConf
}

// ConfigFromEnv reads LOG_LEVEL and LOG_FILE, level defaults to info.
func ConfigFromEnv() Config {
	conf := Config{
		Level:      os.Getenv("LOG_LEVEL"),
		FileName:   os.Getenv("LOG_FILE"),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
	if conf.Level == "" {
		conf.Level = "info"
	}
	return conf
}

// New builds a logger writing JSON to stderr. When FileName is set, entries
// are also written to a size rotated file.
func New(conf Config) (*zap.Logger, error) {
	logger, _, err := Open(conf)
	return logger, err
}

// Open is like New but also returns a function that syncs the logger and
// closes the rotated log file, if any.
func Open(conf Config) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(conf.Level)
	if err != nil {
		return nil, nil, err
	}

	logConf := DefaultConfig()
	logConf.Level = zap.NewAtomicLevelAt(level)

	if conf.FileName == "" {
		logger, err := logConf.Build()
		if err != nil {
			return nil, nil, err
		}
		return logger, syncFunc(logger, nil), nil
	}

	rotated := &lumberjack.Logger{
		Filename:   conf.FileName,
		MaxSize:    conf.MaxSize,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAge,
		Compress:   conf.Compress,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(logConf.EncoderConfig),
		zapcore.AddSync(rotated),
		logConf.Level,
	)

	logger, err := logConf.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	if err != nil {
		return nil, nil, errors.Join(err, rotated.Close())
	}

	return logger, syncFunc(logger, rotated), nil
}

// syncFunc flushes the logger and closes file. Sync errors from stderr
// are ignored.
func syncFunc(logger *zap.Logger, file io.Closer) func() error {
	return func() error {
		_ = logger.Sync()
		if file == nil {
			return nil
		}
		return file.Close()
	}
}

func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))
	switch l {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		level, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, err
		}
		return zapcore.Level(level), nil
	}
}
