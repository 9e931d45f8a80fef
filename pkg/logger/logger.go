package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Leveled process logger used by the auth service.
// Output is JSON via log/slog; the printf-style helpers stay for call sites
// that only have a message.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	level  Level     = LevelInfo
	lvlVar slog.LevelVar
	base   *slog.Logger = newBase(os.Stdout)
)

// exit is swapped in tests.
var exit = os.Exit

func newBase(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &lvlVar}))
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
		lvlVar.Set(slog.LevelDebug)
	case "warn", "warning":
		level = LevelWarn
		lvlVar.Set(slog.LevelWarn)
	case "error":
		level = LevelError
		lvlVar.Set(slog.LevelError)
	case "fatal":
		level = LevelFatal
		lvlVar.Set(slog.LevelError + 4)
	default:
		level = LevelInfo
		lvlVar.Set(slog.LevelInfo)
	}
}

// SetOutput redirects log output; nil restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	defer mu.Unlock()
	base = newBase(w)
}

// L returns the structured logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

func logf(lvl slog.Level, format string, v ...interface{}) {
	L().Log(context.Background(), lvl, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(slog.LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	L().Log(context.Background(), slog.LevelError+4, fmt.Sprintf(format, v...))
	exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	L().Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
