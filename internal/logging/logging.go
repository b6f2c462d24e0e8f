// Package logging is a thin leveled wrapper over the standard library's
// log package, matching the teacher repo's own "log.Println/fmt.Printf,
// no framework" style rather than introducing a logging dependency the
// rest of the pack never uses.
package logging

import (
	"log"
	"os"
)

// Level is a logging verbosity, ordered least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

// ParseLevel maps a config string ("error", "info", "debug") to a Level,
// defaulting to LevelInfo for an unrecognised value.
func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Logger gates stdlib *log.Logger output by level.
type Logger struct {
	level Level
	out   *log.Logger
}

// New returns a Logger writing to stderr at the given level.
func New(level Level) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LevelError {
		l.out.Printf("ERROR "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		l.out.Printf("INFO "+format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		l.out.Printf("DEBUG "+format, args...)
	}
}
