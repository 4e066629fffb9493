package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Leveled logger shared by the site services.
// - JSON lines via zerolog
// - provides Debug/Info/Warn/Error/Fatal variants and Init(level)

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
	logger zerolog.Logger = newZerolog(os.Stdout)
	level  Level          = LevelInfo
)

func newZerolog(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newZerolog(w)
}

func current(l Level) (zerolog.Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, l >= level
}

func Debugf(format string, v ...interface{}) {
	if lg, ok := current(LevelDebug); ok {
		lg.Debug().Msgf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	if lg, ok := current(LevelInfo); ok {
		lg.Info().Msgf(format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	if lg, ok := current(LevelWarn); ok {
		lg.Warn().Msgf(format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	if lg, ok := current(LevelError); ok {
		lg.Error().Msgf(format, v...)
	}
}

// Fatalf logs and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	lg, _ := current(LevelFatal)
	lg.WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	if lg, ok := current(LevelInfo); ok {
		lg.Info().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
	}
}

// Fields logs msg at info level with structured key/value fields.
func Fields(msg string, fields map[string]interface{}) {
	if lg, ok := current(LevelInfo); ok {
		lg.Info().Fields(fields).Msg(msg)
	}
}

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
