// Package logger is the leveled logger used by the session manager and its
// command-line tools.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

// ParseLevel maps debug, info, warn, error and off (case-insensitive) to a Level.
// Unknown input yields LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "none", "silent":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	}
	return "info"
}

// Logger writes timestamped, level-tagged lines. Safe for concurrent use.
type Logger struct {
	out   *log.Logger
	level atomic.Int32
	now   func() time.Time
}

// New returns a logger writing to w at level. A nil w means os.Stderr.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &Logger{out: log.New(w, "", 0), now: time.Now}
	l.level.Store(int32(level))
	return l
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, LevelOff)
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

// Level returns the minimum level.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

func (l *Logger) logf(lvl Level, format string, v ...any) {
	if l == nil || lvl < l.Level() {
		return
	}
	header := fmt.Sprintf("%s [%s] ", l.now().Format(time.RFC3339), strings.ToUpper(lvl.String()))
	l.out.Print(header + fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }
