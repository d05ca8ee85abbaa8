// Package logging is a small leveled, phase-tagged event logger for
// the pass manager and lowering pipeline, colorized with
// github.com/fatih/color the way the teacher's REPL formats its own
// status lines (green/yellow/red/dim SprintFuncs), auto-detecting a
// terminal rather than always colorizing.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Level orders log verbosity, most to least chatty from Debug to Error.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	default:
		return "error"
	}
}

var (
	debugTag = color.New(color.Faint).SprintFunc()
	infoTag  = color.New(color.FgCyan).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
)

func tagFor(l Level) func(a ...interface{}) string {
	switch l {
	case Debug:
		return debugTag
	case Info:
		return infoTag
	case Warn:
		return warnTag
	default:
		return errorTag
	}
}

// Logger writes leveled, phase-tagged lines to an underlying writer.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the package-level logger, lazily initialized against
// os.Stderr at Info level on first use.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New(os.Stderr, Info)
	})
	return defaultLog
}

// SetLevel adjusts the default logger's level (wired to the CLI's
// verbosity flag).
func SetLevel(l Level) { Default().SetLevel(l) }

// New builds a Logger writing to out at the given minimum level.
func New(out io.Writer, level Level) *Logger {
	return &Logger{out: out, level: level}
}

// SetLevel adjusts the minimum level l logs.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, phase, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	tag := tagFor(level)
	fmt.Fprintf(l.out, "%s [%s] %s\n", tag(level.String()), phase, msg)
}

// Debugf logs a Debug-level line tagged with phase (e.g. "parse",
// "verify", "pass:mem2reg", "lower").
func (l *Logger) Debugf(phase, format string, args ...interface{}) { l.log(Debug, phase, format, args...) }

// Infof logs an Info-level line.
func (l *Logger) Infof(phase, format string, args ...interface{}) { l.log(Info, phase, format, args...) }

// Warnf logs a Warn-level line.
func (l *Logger) Warnf(phase, format string, args ...interface{}) { l.log(Warn, phase, format, args...) }

// Errorf logs an Error-level line.
func (l *Logger) Errorf(phase, format string, args ...interface{}) {
	l.log(Error, phase, format, args...)
}

// Debugf logs to the default logger.
func Debugf(phase, format string, args ...interface{}) { Default().Debugf(phase, format, args...) }

// Infof logs to the default logger.
func Infof(phase, format string, args ...interface{}) { Default().Infof(phase, format, args...) }

// Warnf logs to the default logger.
func Warnf(phase, format string, args ...interface{}) { Default().Warnf(phase, format, args...) }

// Errorf logs to the default logger.
func Errorf(phase, format string, args ...interface{}) { Default().Errorf(phase, format, args...) }
