package logger

import (
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig controls level, output file and rotation.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE" env-default:"100"` // megabytes
	MaxAge     int    `env:"LOG_MAX_AGE" env-default:"7"`    // days
	MaxBackups int    `env:"LOG_MAX_BACKUPS" env-default:"5"`
}

// Lg is the process logger. It is a no-op until Init is called.
var Lg = zap.NewNop()

// New builds a zap logger. In "debug" mode it writes a human readable console
// format, otherwise JSON. When Filename is set the output is also written to a
// rotated file.
func New(cfg LogConfig, mode string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = lvl
	}

	var encoder zapcore.Encoder
	if mode == "debug" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if cfg.Filename != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Init builds the process logger and installs it as zap's global logger.
func Init(cfg LogConfig, mode string) error {
	l, err := New(cfg, mode)
	if err != nil {
		return err
	}
	Lg = l
	zap.ReplaceGlobals(l)
	return nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func Debug(msg string, fields ...zap.Field) { Lg.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Lg.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Lg.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Lg.Error(msg, fields...) }

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() { _ = Lg.Sync() }
