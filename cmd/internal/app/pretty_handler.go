package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
)

type style string

const (
	styleNone    style = ""
	styleReset   style = "\x1b[0m"
	styleBold    style = "\x1b[1m"
	styleFaint   style = "\x1b[2m"
	styleRed     style = "\x1b[31m"
	styleGreen   style = "\x1b[32m"
	styleYellow  style = "\x1b[33m"
	styleBlue    style = "\x1b[34m"
	styleMagenta style = "\x1b[35m"
	styleCyan    style = "\x1b[36m"
)

// requestKeys are folded into the summary of "http.request" records.
var requestKeys = []string{"method", "path", "status", "duration_ms"}

// devHandler writes one compact line per record for terminals:
//
//	12:04:05.120 INF http.request GET /api/v1/users 201 7ms request_id=...
//
// Attributes added with WithAttrs are rendered once and reused.
type devHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	color  bool

	prefix string // open groups, dot-joined with a trailing dot
	pre    string // rendered WithAttrs output
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &devHandler{out: w, mu: new(sync.Mutex), level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *devHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *devHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}
	cp := *h
	cp.pre = h.pre + b.String()
	return &cp
}

func (h *devHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *devHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(h.paint(styleFaint, r.Time.Format("15:04:05.000")))
		b.WriteByte(' ')
	}
	b.WriteString(h.paint(levelStyle(r.Level), levelLabel(r.Level)))
	b.WriteByte(' ')
	b.WriteString(h.paint(styleBold, r.Message))

	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	if r.Message == "http.request" && h.prefix == "" {
		attrs = h.writeRequestSummary(&b, attrs)
	}

	b.WriteString(h.pre)
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}

	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(h.paint(styleFaint, " @"+filepath.Base(f.File)+":"+strconv.Itoa(f.Line)))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// writeRequestSummary renders "METHOD path status Nms" and returns the
// attributes it did not consume.
func (h *devHandler) writeRequestSummary(b *strings.Builder, attrs []slog.Attr) []slog.Attr {
	found := make(map[string]slog.Value, len(requestKeys))
	rest := attrs[:0:0]
	for _, a := range attrs {
		if slices.Contains(requestKeys, a.Key) {
			found[a.Key] = a.Value.Resolve()
			continue
		}
		rest = append(rest, a)
	}

	if v, ok := found["method"]; ok {
		b.WriteString(" " + h.paint(styleMagenta, strings.ToUpper(v.String())))
	}
	if v, ok := found["path"]; ok {
		b.WriteString(" " + h.paint(styleCyan, v.String()))
	}
	if v, ok := found["status"]; ok {
		b.WriteString(" " + h.paint(statusStyle(v), v.String()))
	}
	if v, ok := found["duration_ms"]; ok {
		b.WriteString(" " + v.String() + "ms")
	}
	return rest
}

func (h *devHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, prefix, ga)
		}
		return
	}

	key := prefix + a.Key
	val := quoteValue(a.Value.String())
	if a.Key == "err" {
		val = h.paint(styleRed, val)
	}
	b.WriteString(" " + h.paint(styleFaint, key+"=") + val)
}

func (h *devHandler) paint(s style, text string) string {
	if !h.color || s == styleNone {
		return text
	}
	return string(s) + text + string(styleReset)
}

func levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func levelStyle(l slog.Level) style {
	switch {
	case l >= slog.LevelError:
		return styleRed
	case l >= slog.LevelWarn:
		return styleYellow
	case l >= slog.LevelInfo:
		return styleBlue
	default:
		return styleFaint
	}
}

func statusStyle(v slog.Value) style {
	if v.Kind() != slog.KindInt64 {
		return styleNone
	}
	switch s := v.Int64(); {
	case s >= 500:
		return styleRed
	case s >= 400:
		return styleYellow
	case s >= 300:
		return styleCyan
	default:
		return styleGreen
	}
}

func quoteValue(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiSeq.ReplaceAllString(s, "") }
