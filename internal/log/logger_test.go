package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentAttachedOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: slog.LevelDebug, Component: "app"})
	l.WithComponent(ComponentReconciler).Info("hello", FieldMode, "connected_live")

	line := buf.String()
	if strings.Count(line, "component=") != 1 {
		t.Fatalf("expected one component attribute: %s", line)
	}
	if !strings.Contains(line, "component=reconciler") || !strings.Contains(line, "mode=connected_live") {
		t.Fatalf("unexpected line: %s", line)
	}
}

func TestMiddlewareAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Component: ComponentHTTP})

	var seen *Logger
	h := Middleware(l)(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if seen != l {
		t.Fatal("logger not stored in context")
	}
	if !strings.Contains(buf.String(), "status_code=418") {
		t.Fatalf("access log missing status: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}
}
