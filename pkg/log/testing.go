package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Entry is one record captured by a TestLogger.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Component returns the name of the logger that emitted the record, or ""
// for the root logger.
func (e Entry) Component() string {
	name, _ := e.Fields[ComponentKey].(string)
	return name
}

// recorder is shared by a TestLogger and every logger derived from it.
type recorder struct {
	mu      sync.Mutex
	level   Level
	entries []Entry
}

func (r *recorder) enabled(level Level) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level <= level
}

// TestLogger keeps records in memory so tests can assert on them.
type TestLogger struct {
	rec    *recorder
	fields []any
}

// NewTestLogger returns a logger that records everything at or above level.
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{rec: &recorder{level: level}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	merged := append(append([]any(nil), t.fields...), evenFields(fields)...)
	return &TestLogger{rec: t.rec, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.rec.enabled(level)
}

// record stores one entry. As with the zerolog backend, a leading error
// field is stored under "error".
func (t *TestLogger) record(level Level, msg string, fields []any) {
	if !t.rec.enabled(level) {
		return
	}
	entry := Entry{Level: level, Message: msg, Fields: make(map[string]any)}
	putPairs(entry.Fields, t.fields)
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			entry.Fields["error"] = err.Error()
			fields = fields[1:]
		}
	}
	putPairs(entry.Fields, fields)

	t.rec.mu.Lock()
	t.rec.entries = append(t.rec.entries, entry)
	t.rec.mu.Unlock()
}

func putPairs(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		value := fields[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		dst[fmt.Sprint(fields[i])] = value
	}
}

// Entries returns a snapshot of the captured records in emission order.
func (t *TestLogger) Entries() []Entry {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	return append([]Entry(nil), t.rec.entries...)
}

// EntriesFrom returns the records emitted by the named component.
func (t *TestLogger) EntriesFrom(component string) []Entry {
	var out []Entry
	for _, e := range t.Entries() {
		if e.Component() == component {
			out = append(out, e)
		}
	}
	return out
}

// ContainsMessage reports whether any record's message contains msg.
func (t *TestLogger) ContainsMessage(msg string) bool {
	for _, e := range t.Entries() {
		if strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}

// ContainsField reports whether any record carries key with the given value.
// Values are compared by their printed form, so 42 matches 42.0.
func (t *TestLogger) ContainsField(key string, value any) bool {
	want := fmt.Sprint(value)
	for _, e := range t.Entries() {
		if v, ok := e.Fields[key]; ok && fmt.Sprint(v) == want {
			return true
		}
	}
	return false
}

// TestProvider is a LoggerProvider whose loggers all record into one
// TestLogger; named loggers tag their records with ComponentKey.
type TestProvider struct {
	root *TestLogger
}

func NewTestProvider(level Level) *TestProvider {
	return &TestProvider{root: NewTestLogger(level)}
}

func (p *TestProvider) GetLogger() Logger { return p.root }

func (p *TestProvider) GetLoggerWithName(name string) Logger {
	return p.root.With(ComponentKey, name)
}

func (p *TestProvider) SetLevel(level Level) {
	p.root.rec.mu.Lock()
	p.root.rec.level = level
	p.root.rec.mu.Unlock()
}

// Capture installs a TestProvider as the process-wide provider for the
// rest of the test and returns its recorder.
func Capture(tb interface{ Cleanup(func()) }, level Level) *TestLogger {
	p := NewTestProvider(level)
	prev := SetProvider(p)
	tb.Cleanup(func() { SetProvider(prev) })
	return p.root
}

var (
	_ Logger         = (*TestLogger)(nil)
	_ LoggerProvider = (*TestProvider)(nil)
)
