package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

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

// Logger is the structured logger the rest of the program depends on.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type sink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// JSONLogger writes one JSON object per line. Loggers derived with With
// share the same output.
type JSONLogger struct {
	out   *sink
	min   Level
	base  map[string]any
	clock func() time.Time
}

func NewJSONLogger(path string) (*JSONLogger, error) {
	if path == "" {
		return Nop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLogger{out: &sink{w: f}, min: LevelInfo, clock: time.Now}, nil
}

// NewWriterLogger logs to w without taking ownership of it.
func NewWriterLogger(w io.Writer, min Level) *JSONLogger {
	return &JSONLogger{out: &sink{w: nopCloser{Writer: w}}, min: min, clock: time.Now}
}

func Nop() *JSONLogger {
	return &JSONLogger{out: &sink{w: nopCloser{Writer: io.Discard}}, min: LevelError + 1, clock: time.Now}
}

func (l *JSONLogger) SetLevel(min Level) {
	if l != nil {
		l.min = min
	}
}

// With returns a logger that adds fields to every entry.
func (l *JSONLogger) With(fields map[string]any) *JSONLogger {
	if l == nil {
		return nil
	}
	base := make(map[string]any, len(l.base)+len(fields))
	for k, v := range l.base {
		base[k] = v
	}
	for k, v := range fields {
		base[k] = v
	}
	return &JSONLogger{out: l.out, min: l.min, base: base, clock: l.clock}
}

func (l *JSONLogger) Debug(msg string, fields map[string]any) {
	l.log(LevelDebug, msg, fields)
}

func (l *JSONLogger) Info(msg string, fields map[string]any) {
	l.log(LevelInfo, msg, fields)
}

func (l *JSONLogger) Warn(msg string, fields map[string]any) {
	l.log(LevelWarn, msg, fields)
}

func (l *JSONLogger) Error(msg string, fields map[string]any) {
	l.log(LevelError, msg, fields)
}

func (l *JSONLogger) log(level Level, msg string, fields map[string]any) {
	if l == nil || l.out == nil || level < l.min {
		return
	}
	entry := map[string]any{
		"ts":    l.clock().UTC().Format(time.RFC3339Nano),
		"level": level.String(),
		"msg":   msg,
	}
	for k, v := range l.base {
		entry[k] = v
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	b, _ := json.Marshal(entry)
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(append(b, '\n'))
}

func (l *JSONLogger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
