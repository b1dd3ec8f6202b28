// Package logger provides leveled, module-tagged logging for the bridge.
// Messages carry the component that emitted them ("Supervisor", "NDI", ...)
// so operator logs name the failing step.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is the severity of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	SilentLevel // suppresses everything
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "SILENT"}

// ANSI colors per level; index matches the Level constants.
var levelColors = [...]string{"\033[36m", "\033[32m", "\033[33m", "\033[31m", ""}

const resetColor = "\033[0m"

// String returns the level name.
func (l Level) String() string {
	if l >= DebugLevel && l <= SilentLevel {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel parses a level name as given on the command line.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "silent", "none":
		return SilentLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %q", s)
	}
}

// Logger writes leveled, module-tagged messages to a single destination.
type Logger struct {
	mu       sync.Mutex
	level    Level
	useColor bool
	out      *log.Logger
}

// New creates a logger writing to w. A nil w means stderr.
func New(level Level, w io.Writer, useColor bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		level:    level,
		useColor: useColor,
		out:      log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

// SetLevel changes the level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) log(level Level, module, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || level >= SilentLevel {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if l.useColor {
		prefix = levelColors[level] + prefix + resetColor
	}
	if module != "" {
		prefix += " [" + module + "]"
	}
	l.out.Printf("%s %s", prefix, fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func (l *Logger) Debug(module, format string, args ...any) { l.log(DebugLevel, module, format, args...) }

// Info logs an info message.
func (l *Logger) Info(module, format string, args ...any) { l.log(InfoLevel, module, format, args...) }

// Warn logs a warning.
func (l *Logger) Warn(module, format string, args ...any) { l.log(WarnLevel, module, format, args...) }

// Error logs an error.
func (l *Logger) Error(module, format string, args ...any) { l.log(ErrorLevel, module, format, args...) }

// The package-level default, initialized once from main.

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(InfoLevel, os.Stderr, false)
)

// Init replaces the default logger. Call once at startup before any
// component logs.
func Init(level Level, w io.Writer, useColor bool) {
	defaultMu.Lock()
	defaultLogger = New(level, w, useColor)
	defaultMu.Unlock()
}

func std() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Debug logs a debug message via the default logger.
func Debug(module, format string, args ...any) { std().Debug(module, format, args...) }

// Info logs an info message via the default logger.
func Info(module, format string, args ...any) { std().Info(module, format, args...) }

// Warn logs a warning via the default logger.
func Warn(module, format string, args ...any) { std().Warn(module, format, args...) }

// Error logs an error via the default logger.
func Error(module, format string, args ...any) { std().Error(module, format, args...) }
