// Package log provides leveled, structured logging for the execution
// engine, matching the package-level log.Info/Debug/Warn/Error/Crit calling
// convention used throughout the pack (consensus/merger.go, cmd/utils,
// staking/reward.go): a message followed by alternating key/value context
// pairs. Terminal output is colorized when attached to a tty.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a logging severity, ordered least to most severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT"
	default:
		return "?????"
	}
}

// Record is one emitted log line.
type Record struct {
	Time    time.Time
	Level   Level
	Msg     string
	Ctx     []interface{}
	Call    stack.Call
}

// Handler processes a Record, e.g. writing it to a stream.
type Handler interface {
	Log(r *Record) error
}

// Logger emits Records to a Handler above its minimum Level.
type Logger struct {
	mu      sync.Mutex
	handler Handler
	min     Level
}

var root = &Logger{handler: StreamHandler(os.Stderr, TerminalFormat(isatty.IsTerminal(os.Stderr.Fd()))), min: LevelInfo}

// Root returns the package's default logger.
func Root() *Logger { return root }

// SetHandler replaces the root logger's handler.
func SetHandler(h Handler) { root.mu.Lock(); defer root.mu.Unlock(); root.handler = h }

// SetLevel sets the root logger's minimum emitted level.
func SetLevel(l Level) { root.mu.Lock(); defer root.mu.Unlock(); root.min = l }

func (l *Logger) write(level Level, msg string, ctx []interface{}) {
	l.mu.Lock()
	h, min := l.handler, l.min
	l.mu.Unlock()
	if level < min || h == nil {
		return
	}
	r := &Record{Time: time.Now(), Level: level, Msg: msg, Ctx: ctx, Call: stack.Caller(2)}
	_ = h.Log(r)
}

func (l *Logger) Trace(msg string, ctx ...interface{}) { l.write(LevelTrace, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.write(LevelDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.write(LevelInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.write(LevelWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.write(LevelError, msg, ctx) }

// Crit logs at LevelCrit and terminates the process, matching the
// upstream convention (e.g. "Bootstrap URL invalid" in cmd/utils/flags.go
// is always immediately fatal).
func (l *Logger) Crit(msg string, ctx ...interface{}) {
	l.write(LevelCrit, msg, ctx)
	os.Exit(1)
}

func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }

// New returns a child logger that prepends ctx to every Record it emits.
func New(ctx ...interface{}) *Logger {
	return &Logger{handler: prefixHandler{prefix: ctx, next: root.handler}, min: root.min}
}

type prefixHandler struct {
	prefix []interface{}
	next   Handler
}

func (p prefixHandler) Log(r *Record) error {
	r.Ctx = append(append([]interface{}{}, p.prefix...), r.Ctx...)
	return p.next.Log(r)
}

// StreamHandler writes formatted Records to w.
func StreamHandler(w io.Writer, fmtr Formatter) Handler {
	if f, ok := w.(*os.File); ok {
		w = colorable.NewColorable(f)
	}
	return &streamHandler{w: w, fmtr: fmtr}
}

type streamHandler struct {
	mu   sync.Mutex
	w    io.Writer
	fmtr Formatter
}

func (h *streamHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(h.fmtr.Format(r))
	return err
}

// Formatter renders a Record to bytes.
type Formatter interface {
	Format(r *Record) []byte
}

type terminalFormat struct{ color bool }

// TerminalFormat renders each Record as a single colorized line when color
// is true (an attached tty), plain text otherwise.
func TerminalFormat(color bool) Formatter { return terminalFormat{color: color} }

var levelColor = map[Level]int{
	LevelTrace: 90,
	LevelDebug: 36,
	LevelInfo:  32,
	LevelWarn:  33,
	LevelError: 31,
	LevelCrit:  35,
}

func (t terminalFormat) Format(r *Record) []byte {
	var b []byte
	ts := r.Time.Format("01-02|15:04:05.000")
	if t.color {
		b = append(b, fmt.Sprintf("\x1b[%dm%-5s\x1b[0m[%s] %s", levelColor[r.Level], r.Level, ts, r.Msg)...)
	} else {
		b = append(b, fmt.Sprintf("%-5s[%s] %s", r.Level, ts, r.Msg)...)
	}
	for i := 0; i+1 < len(r.Ctx); i += 2 {
		b = append(b, fmt.Sprintf(" %v=%v", r.Ctx[i], r.Ctx[i+1])...)
	}
	b = append(b, '\n')
	return b
}
