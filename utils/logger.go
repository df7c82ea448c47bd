package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled, colored logging throughout the application.
type Logger struct {
	mu    sync.Mutex
	min   Level
	color bool
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger
}

// NewLogger creates a Logger writing info/debug/warn to stdout and errors
// to stderr.
func NewLogger() *Logger {
	return &Logger{
		min:   LevelInfo,
		color: true,
		info:  log.New(os.Stdout, "", 0),
		warn:  log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
		debug: log.New(os.Stdout, "", 0),
	}
}

// NewLoggerTo sends every level to w without color codes.
func NewLoggerTo(w io.Writer, min Level) *Logger {
	l := log.New(w, "", 0)
	return &Logger{min: min, info: l, warn: l, err: l, debug: l}
}

// Discard returns a Logger that drops everything; handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, LevelError+1)
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(min Level) {
	l.mu.Lock()
	l.min = min
	l.mu.Unlock()
}

func (l *Logger) enabled(lvl Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lvl >= l.min
}

func (l *Logger) write(dst *log.Logger, lvl Level, tag, color, format string, args ...any) {
	if !l.enabled(lvl) {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	if l.color {
		tag = color + tag + "\033[0m"
	}
	dst.Printf("[%s] %s %s", ts, tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.write(l.info, LevelInfo, "INFO ", "\033[32m", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(l.warn, LevelWarn, "WARN ", "\033[33m", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(l.err, LevelError, "ERROR", "\033[31m", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.write(l.debug, LevelDebug, "DEBUG", "\033[36m", format, args...)
}
