// Package logging provides the process-wide zap logger, request-scoped loggers,
// and audit helpers used across the marketplace API.
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
)

const serviceName = "harvest-bridge"

var (
	loggerOnce sync.Once
	baseLogger *zap.Logger
	loggerErr  error
)

// Cloud Logging severity names. Levels not listed encode as DEFAULT.
var severities = map[zapcore.Level]string{
	zapcore.DebugLevel:  "DEBUG",
	zapcore.InfoLevel:   "INFO",
	zapcore.WarnLevel:   "WARNING",
	zapcore.ErrorLevel:  "ERROR",
	zapcore.DPanicLevel: "CRITICAL",
	zapcore.PanicLevel:  "ALERT",
	zapcore.FatalLevel:  "EMERGENCY",
}

func encodeSeverity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	s, ok := severities[level]
	if !ok {
		s = "DEFAULT"
	}
	enc.AppendString(s)
}

func encodeTimeMicros(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(timeutil.RFC3339Micros))
}

// levelFromEnv reads LOG_LEVEL; unknown or empty values mean info.
func levelFromEnv() zapcore.Level {
	lvl := zapcore.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return zapcore.InfoLevel
		}
	}
	return lvl
}

// encodingFromEnv reads LOG_FORMAT. "console" gives human-readable lines for
// local runs; anything else keeps the JSON that Cloud Logging ingests.
func encodingFromEnv() string {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "console") {
		return "console"
	}
	return "json"
}

func initLogger() {
	encoder := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeSeverity,
		EncodeTime:     encodeTimeMicros,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(levelFromEnv()),
		Encoding:         encodingFromEnv(),
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stdout"},
		InitialFields:    map[string]any{"service": serviceName},
		Sampling:         &zap.SamplingConfig{Initial: 100, Thereafter: 100},
	}

	baseLogger, loggerErr = cfg.Build(zap.AddCaller())
	if loggerErr != nil {
		baseLogger = zap.NewNop()
	}
}

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	loggerOnce.Do(initLogger)
	return baseLogger
}

// Sync flushes buffered entries; call it on shutdown.
func Sync() error {
	return Logger().Sync()
}

// Err reports why the logger could not be built. A failed build leaves a
// no-op logger in place.
func Err() error {
	loggerOnce.Do(initLogger)
	return loggerErr
}
