// Package logger provides leveled logging (info/warning/error) for the
// batch pipeline. Info and warnings go to stdout, errors to stderr.
package logger

import (
	"log"
	"os"
	"sync"
)

// Logger wraps per-level standard loggers. Safe for concurrent use by the
// batch workers.
type Logger struct {
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
	mu       sync.Mutex
}

// New creates a Logger writing to stdout/stderr.
func New() *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		infoLog:  log.New(os.Stdout, "INFO    ", flags),
		warnLog:  log.New(os.Stdout, "WARNING ", flags),
		errorLog: log.New(os.Stderr, "ERROR   ", flags),
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnLog.Printf(format, v...)
}

// Error logs an error.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}
