package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := string(styleBlue) + "INF" + string(styleReset) + " plain " + string(styleRed) + "ERR" + string(styleReset)
	if got, want := stripANSI(in), "INF plain ERR"; got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_RequestSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false)).
		With("request_id", "abc")

	log.Debug("hidden")
	log.Info("http.request", "method", "get", "path", "/api/v1/users", "status", 201, "duration_ms", 7, "note", "two words")

	line := buf.String()
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record must be filtered: %q", line)
	}
	for _, want := range []string{
		"INF http.request GET /api/v1/users 201 7ms",
		"request_id=abc",
		`note="two words"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
	if strings.Contains(line, "method=") || strings.Contains(line, "status=") {
		t.Fatalf("request fields must be folded into the summary: %q", line)
	}
	if line != stripANSI(line) {
		t.Fatalf("colorless handler emitted ANSI codes: %q", line)
	}
}

func TestPrettyHandler_ColorAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true)).WithGroup("db")
	log.Error("store.fail", "err", "boom", slog.Group("pool", "max", 10))

	line := buf.String()
	if !strings.Contains(line, string(styleRed)+"ERR"+string(styleReset)) {
		t.Fatalf("expected colored level label in %q", line)
	}
	plain := stripANSI(line)
	if !strings.Contains(plain, "db.err=boom") || !strings.Contains(plain, "db.pool.max=10") {
		t.Fatalf("expected grouped keys in %q", plain)
	}
}

func TestPrettyHandler_SourceSuffix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}, false)).Info("boot")

	if !strings.Contains(buf.String(), "@pretty_handler_test.go:") {
		t.Fatalf("expected source suffix in %q", buf.String())
	}
}

func TestLevelLabel(t *testing.T) {
	t.Parallel()

	cases := map[slog.Level]string{
		slog.LevelDebug: "DBG",
		slog.LevelInfo:  "INF",
		slog.LevelWarn:  "WRN",
		slog.LevelError: "ERR",
	}
	for lvl, want := range cases {
		if got := levelLabel(lvl); got != want {
			t.Fatalf("levelLabel(%v)=%q want %q", lvl, got, want)
		}
	}
}
