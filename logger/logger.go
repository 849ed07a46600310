// Package logger is the process-wide zap logger, encoded for Cloud Logging.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	zapLog *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func encodeLevel() zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		switch l {
		case zapcore.DebugLevel:
			enc.AppendString("DEBUG")
		case zapcore.InfoLevel:
			enc.AppendString("INFO")
		case zapcore.WarnLevel:
			enc.AppendString("WARNING")
		case zapcore.ErrorLevel:
			enc.AppendString("ERROR")
		case zapcore.DPanicLevel:
			enc.AppendString("CRITICAL")
		case zapcore.PanicLevel:
			enc.AppendString("ALERT")
		case zapcore.FatalLevel:
			enc.AppendString("EMERGENCY")
		}
	}
}

func init() {
	zapLog = newLogger(os.Stdout)
	zap.ReplaceGlobals(zapLog)
}

func newLogger(w io.Writer) *zap.Logger {
	// severity/ISO8601 is what Cloud Logging parses out of stdout JSON
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.LevelKey = "severity"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeLevel = encodeLevel()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

// Init sets the level from its text form ("debug", "info", ...) and installs
// the logger as zap's global so zap.L() callers share it.
func Init(lvl string) error {
	if err := SetLevel(lvl); err != nil {
		return err
	}
	zap.ReplaceGlobals(zapLog)
	return nil
}

// SetLevel changes the minimum level at runtime
func SetLevel(lvl string) error {
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed)
	return nil
}

// SetOutput redirects log output, mainly for tests
func SetOutput(w io.Writer) {
	zapLog = newLogger(w)
	zap.ReplaceGlobals(zapLog)
}

// L returns the underlying logger
func L() *zap.Logger {
	return zapLog
}

// Info logs at info level
func Info(message string, fields ...zap.Field) {
	zapLog.Info(message, fields...)
}

// Debug logs at debug level
func Debug(message string, fields ...zap.Field) {
	zapLog.Debug(message, fields...)
}

// Warn logs at warning level
func Warn(message string, fields ...zap.Field) {
	zapLog.Warn(message, fields...)
}

// Error logs at error level
func Error(message string, fields ...zap.Field) {
	zapLog.Error(message, fields...)
}

// Fatal logs at emergency level, then exits
func Fatal(message string, fields ...zap.Field) {
	zapLog.Fatal(message, fields...)
}
