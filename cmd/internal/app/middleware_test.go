package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestLogMeta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status     int
		wantLevel  slog.Level
		wantResult string
		wantClass  string
	}{
		{status: 200, wantLevel: slog.LevelInfo, wantResult: "success", wantClass: "2xx"},
		{status: 302, wantLevel: slog.LevelInfo, wantResult: "redirect", wantClass: "3xx"},
		{status: 404, wantLevel: slog.LevelWarn, wantResult: "client_error", wantClass: "4xx"},
		{status: 503, wantLevel: slog.LevelError, wantResult: "server_error", wantClass: "5xx"},
	}

	for _, tc := range cases {
		level, result := requestLogMeta(tc.status)
		if level != tc.wantLevel || result != tc.wantResult {
			t.Fatalf("status=%d level=%v result=%q; want level=%v result=%q", tc.status, level, result, tc.wantLevel, tc.wantResult)
		}
		if got := statusClass(tc.status); got != tc.wantClass {
			t.Fatalf("statusClass(%d)=%q want=%q", tc.status, got, tc.wantClass)
		}
	}
}

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff: %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("missing frame options: %q", got)
	}
	if got := rr.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Fatalf("missing referrer policy: %q", got)
	}
}

func TestWithRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{name: "propagates sane id", inbound: "req-123_abc.def", keep: true},
		{name: "assigns when missing", inbound: ""},
		{name: "replaces unsafe id", inbound: "bad id\n"},
		{name: "replaces oversized id", inbound: strings.Repeat("a", 129)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if tc.inbound != "" {
			req.Header.Set(requestIDHeader, tc.inbound)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		got := rr.Header().Get(requestIDHeader)
		if got != seen {
			t.Fatalf("%s: header %q and context %q differ", tc.name, got, seen)
		}
		if tc.keep && got != tc.inbound {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.inbound)
		}
		if !tc.keep {
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("%s: expected generated uuid, got %q", tc.name, got)
			}
		}
	}
}

func TestWithRequestLogging_LevelsByStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := WithRequestID(WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), log))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/nope", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["level"] != "WARN" || line["msg"] != "http.request" {
		t.Fatalf("unexpected level/msg: %v", line)
	}
	if line["status"] != float64(404) || line["result"] != "client_error" || line["status_class"] != "4xx" {
		t.Fatalf("unexpected status fields: %v", line)
	}
	if id, _ := line["request_id"].(string); id == "" {
		t.Fatalf("request_id missing: %v", line)
	}
}

func TestWithMetrics_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return WithMetrics(next, m) })
	r.Get("/api/v1/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/users/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/users/{id}", "204"))
	if got != 3 {
		t.Fatalf("requests_total=%v want 3", got)
	}
	if n := testutil.CollectAndCount(m.requests); n != 1 {
		t.Fatalf("expected a single series, got %d", n)
	}
}
