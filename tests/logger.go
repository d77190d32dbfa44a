package testutil

import (
	"sync"

	"github.com/trezcool/schoolpulse/core"
)

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Fields returns the first core.Fields argument of the entry.
func (e LogEntry) Fields() core.Fields {
	for _, arg := range e.Args {
		if f, ok := arg.(core.Fields); ok {
			return f
		}
	}
	return nil
}

// Logger records log entries in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

func (l *Logger) record(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.record("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.record("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.record("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.record("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.record("FATAL", msg, args) }
