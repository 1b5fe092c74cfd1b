package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel parses a level name case-insensitively. Unknown names map to
// INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// sink is the destination shared by a logger and everything derived from it.
type sink struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

// Logger writes leveled printf-style lines with a component prefix and
// sorted key=value fields.
type Logger struct {
	sink   *sink
	level  Level
	prefix string
	fields map[string]any
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput sets the output destination. Colors follow whether w is a
// terminal unless WithColors is given after it.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.sink.out = w
		l.sink.colorize = isTerminal(w)
	}
}

func WithLevel(level Level) Option {
	return func(l *Logger) {
		l.level = level
	}
}

func WithPrefix(prefix string) Option {
	return func(l *Logger) {
		l.prefix = prefix
	}
}

func WithColors(enabled bool) Option {
	return func(l *Logger) {
		l.sink.colorize = enabled
	}
}

// New creates a Logger writing to stdout at INFO.
func New(opts ...Option) *Logger {
	l := &Logger{
		sink:  &sink{out: os.Stdout, colorize: isTerminal(os.Stdout)},
		level: INFO,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var defaultLogger = New()

// SetDefault replaces the process-wide logger returned by Default and used
// by FromContext when the context carries none.
func SetDefault(l *Logger) {
	defaultLogger = l
}

func Default() *Logger {
	return defaultLogger
}

func (l *Logger) clone() *Logger {
	c := *l
	return &c
}

// WithField returns a derived logger that appends key=value to every line.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a derived logger carrying the union of l's fields and
// fields; fields wins on conflicts.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	c := l.clone()
	c.fields = make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		c.fields[k] = v
	}
	for k, v := range fields {
		c.fields[k] = v
	}
	return c
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	c := l.clone()
	c.prefix = prefix
	return c
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) Debug(msg string, args ...any) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(ERROR, msg, args...) }

func (l *Logger) log(level Level, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteByte(' ')
	sb.WriteString(l.levelLabel(level))
	sb.WriteByte(' ')
	if l.prefix != "" {
		fmt.Fprintf(&sb, "[%s] ", l.prefix)
	}
	// skip log and the Debug/Info/Warn/Error wrapper
	if _, file, line, ok := runtime.Caller(2); ok {
		fmt.Fprintf(&sb, "[%s:%d] ", filepath.Base(file), line)
	}
	sb.WriteString(msg)
	writeFields(&sb, l.fields)
	sb.WriteByte('\n')

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	io.WriteString(l.sink.out, sb.String())
}

func (l *Logger) levelLabel(level Level) string {
	label := fmt.Sprintf("%-5s", level)
	if !l.sink.colorize {
		return label
	}
	return levelColors[level] + label + "\033[0m"
}

func writeFields(sb *strings.Builder, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, " %s=%s", k, formatValue(fields[k]))
	}
}

// formatValue quotes values containing whitespace or quotes so key=value
// pairs stay splittable.
func formatValue(v any) string {
	str := fmt.Sprint(v)
	if strings.ContainsAny(str, " \t\n\"") {
		return fmt.Sprintf("%q", str)
	}
	return str
}

func Debug(msg string, args ...any) { defaultLogger.log(DEBUG, msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.log(INFO, msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.log(WARN, msg, args...) }
func Error(msg string, args ...any) { defaultLogger.log(ERROR, msg, args...) }

type ctxKey struct{}

// FromContext returns the request-scoped logger, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}

func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}
