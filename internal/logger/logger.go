package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It is a no-op logger until Initialize is called.
var Log = zap.NewNop()

// Initialize builds the global logger. Console output is always enabled; when
// logFile is set a JSON core writes to a rotated file as well.
func Initialize(logLevel string, logFile string) error {
	level := parseLogLevel(logLevel)

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
	}

	if logFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		})

		jsonEncoderConfig := zap.NewProductionEncoderConfig()
		jsonEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig), fileWriter, level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	Log.Info("Logger initialized",
		zap.String("level", level.String()),
		zap.String("file", logFile),
	)
	return nil
}

// Close flushes buffered log entries.
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ErrorWithFields logs msg at error level with err attached.
func ErrorWithFields(msg string, err error, fields ...zap.Field) {
	Log.Error(msg, append(fields, zap.Error(err))...)
}

// WarnWithFields logs msg at warn level with err attached.
func WarnWithFields(msg string, err error, fields ...zap.Field) {
	Log.Warn(msg, append(fields, zap.Error(err))...)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithContentID(contentID string) zap.Field {
	return zap.String("content_id", contentID)
}
