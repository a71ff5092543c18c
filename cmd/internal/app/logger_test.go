package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_FormatSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		format   string
		tty      bool
		wantJSON bool
	}{
		{format: "json", tty: true, wantJSON: true},
		{format: "pretty", tty: false, wantJSON: false},
		{format: "auto", tty: false, wantJSON: true},
		{format: "auto", tty: true, wantJSON: false},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		newLogger(&buf, "info", tc.format, tc.tty).Info("hello", "k", "v")

		var m map[string]any
		isJSON := json.Unmarshal(buf.Bytes(), &m) == nil
		if isJSON != tc.wantJSON {
			t.Fatalf("format=%s tty=%v: json=%v want %v (%q)", tc.format, tc.tty, isJSON, tc.wantJSON, buf.String())
		}
		if !strings.Contains(buf.String(), "hello") {
			t.Fatalf("missing message in %q", buf.String())
		}
	}
}
