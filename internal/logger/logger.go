package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	Configure(os.Stderr, "info")
}

// Configure replaces the global logger. Unknown levels fall back to info.
func Configure(out io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
}

// GetLogger returns the current zerolog.Logger instance
func GetLogger() zerolog.Logger {
	return log.Logger
}

// LogDebug logs a debug message and optional additional data
func LogDebug(message string, data ...interface{}) {
	logLevel(zerolog.DebugLevel, message, data...)
}

// LogDebugf logs a debug message which can be formatted as fmt.Sprintf
func LogDebugf(message string, values ...interface{}) {
	logLevel(zerolog.DebugLevel, fmt.Sprintf(message, values...))
}

// LogInfo logs an info message and optional additional data
func LogInfo(message string, data ...interface{}) {
	logLevel(zerolog.InfoLevel, message, data...)
}

// LogInfof logs an info message which can be formatted as fmt.Sprintf
func LogInfof(message string, values ...interface{}) {
	logLevel(zerolog.InfoLevel, fmt.Sprintf(message, values...))
}

// LogWarn logs a warning message and optional additional data
func LogWarn(message string, data ...interface{}) {
	logLevel(zerolog.WarnLevel, message, data...)
}

// LogWarnf logs a warning message which can be formatted as fmt.Sprintf
func LogWarnf(message string, values ...interface{}) {
	logLevel(zerolog.WarnLevel, fmt.Sprintf(message, values...))
}

// LogError logs an error
func LogError(err error, data ...interface{}) {
	if err == nil {
		return
	}
	logLevel(zerolog.ErrorLevel, err.Error(), data...)
}

// LogErrorf logs an error message which can be formatted as fmt.Sprintf
func LogErrorf(message string, values ...interface{}) {
	logLevel(zerolog.ErrorLevel, fmt.Sprintf(message, values...))
}

// LogErrorIfExists logs an error if it exits
func LogErrorIfExists(err error, data ...interface{}) {
	if err != nil {
		LogError(err, data...)
	}
}

func logLevel(level zerolog.Level, message string, data ...interface{}) {
	if len(data) == 0 {
		log.WithLevel(level).Msg(message)
		return
	}
	log.WithLevel(level).Interface("data", data).Msg(message)
}
