// Package logger configures structured logging for the CLI and the companion server.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"

	// ComponentKey names the subsystem that emitted a record.
	ComponentKey = "component"

	redacted = "[REDACTED]"
)

// sensitiveKeys never reach the output with their value.
var sensitiveKeys = []string{"token", "password", "authorization", "passphrase", "secret"}

// ANSI escape sequences.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiPurple = "\033[35m"
	ansiCyan   = "\033[36m"
)

// Logger wraps slog.Logger for injection.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Writer defaults to stderr so command output on stdout stays clean.
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
	// NoColor disables ANSI colors. The NO_COLOR environment variable
	// has the same effect.
	NoColor bool
}

// New creates a logger. Production logs JSON; other environments get the
// single-line pretty format unless Format says otherwise.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.Format == "" {
		cfg.Format = formatPretty
		if cfg.Environment == "production" {
			cfg.Format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceAttr,
	}

	if cfg.Format == formatJSON {
		return &Logger{Logger: slog.New(slog.NewJSONHandler(cfg.Writer, opts))}
	}
	h := NewPrettyHandler(cfg.Writer, opts)
	h.color = !cfg.NoColor && os.Getenv("NO_COLOR") == ""
	return &Logger{Logger: slog.New(h)}
}

// replaceAttr shortens source paths and masks sensitive values.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if src, ok := a.Value.Any().(*slog.Source); ok {
			src.File = filepath.Base(src.File)
		}
		return a
	}
	if isSensitive(a.Key) {
		return slog.String(a.Key, redacted)
	}
	return a
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	return slices.ContainsFunc(sensitiveKeys, func(s string) bool { return strings.Contains(key, s) })
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent tags every record with the emitting component. The pretty
// format shows it as a "[name]" prefix.
func (l *Logger) WithComponent(name string) *slog.Logger {
	return l.With(slog.String(ComponentKey, name))
}

// PrettyHandler writes one line per record:
//
//	15:04:05 INF [remote] request failed path=/api/v1/books status=502
type PrettyHandler struct {
	opts      *slog.HandlerOptions
	w         io.Writer
	attrs     []slog.Attr
	group     string
	component string
	color     bool
}

// NewPrettyHandler creates a pretty handler. Colors are off until New
// enables them.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{opts: opts, w: w}
}

// Enabled reports whether level is at or above the configured minimum.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle writes r.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	h.paint(&b, ansiDim, r.Time.Format("15:04:05"))
	b.WriteByte(' ')
	name, color := levelLabel(r.Level)
	h.paint(&b, color, name)
	b.WriteByte(' ')

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		h.paint(&b, ansiDim, filepath.Base(frame.File)+":"+strconv.Itoa(frame.Line))
		b.WriteByte(' ')
	}

	component := h.component
	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if h.group == "" && a.Key == ComponentKey {
			component = a.Value.String()
			return true
		}
		attrs = append(attrs, h.qualify(a))
		return true
	})

	if component != "" {
		h.paint(&b, ansiBlue, "["+component+"]")
		b.WriteByte(' ')
	}
	h.paint(&b, ansiBold, r.Message)

	for _, a := range attrs {
		b.WriteByte(' ')
		h.paint(&b, ansiCyan, a.Key+"="+formatValue(a.Value))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.w, b.String())
	return err
}

// qualify applies the group prefix and redaction.
func (h *PrettyHandler) qualify(a slog.Attr) slog.Attr {
	a = replaceAttr(nil, a)
	if h.group != "" {
		a.Key = h.group + a.Key
	}
	return a
}

func (h *PrettyHandler) paint(b *strings.Builder, color, s string) {
	if !h.color {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if h.group == "" && a.Key == ComponentKey {
			clone.component = a.Value.String()
			continue
		}
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

// WithGroup returns a handler that prefixes later keys with "name.".
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func levelLabel(level slog.Level) (name, color string) {
	switch {
	case level < slog.LevelInfo:
		return "DBG", ansiPurple
	case level < slog.LevelWarn:
		return "INF", ansiGreen
	case level < slog.LevelError:
		return "WRN", ansiYellow
	default:
		return "ERR", ansiRed
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}
