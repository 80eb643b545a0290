// Package logger provides a simple leveled logging utility for the orchestrator.
// It wraps the standard `log` package and filters output by log level.
package logger

import (
	"fmt"
	"log"
	"strings"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for fatal errors that terminate the process.
	LevelFatal
)

// tags holds the line prefix for each level.
var tags = map[LogLevel]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
	LevelFatal: "[FATAL] ",
}

// logLevel is the currently set global log level. Only messages at or above this level are output.
var logLevel = LevelInfo

// SetLogLevel sets the global log level.
// Valid string values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// An unknown value falls back to INFO with a warning printed to standard output.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = LevelDebug
	case "INFO":
		logLevel = LevelInfo
	case "WARN":
		logLevel = LevelWarn
	case "ERROR":
		logLevel = LevelError
	case "FATAL":
		logLevel = LevelFatal
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel = LevelInfo
	}
}

// emit writes one log line when the level passes the global filter.
func emit(level LogLevel, format string, v []interface{}) {
	if level < logLevel {
		return
	}
	log.Printf(tags[level]+format, v...)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) { emit(LevelDebug, format, v) }

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) { emit(LevelInfo, format, v) }

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) { emit(LevelWarn, format, v) }

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) { emit(LevelError, format, v) }

// Fatalf formats and outputs a FATAL level log message, then terminates the
// program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf(tags[LevelFatal]+format, v...)
}
