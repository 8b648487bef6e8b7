package middleware

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/pkg/logger"
)

func jsonLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: buf})
}

// chain mirrors the order the router installs the global middleware in.
func chain(log *logger.Logger, h http.Handler) http.Handler {
	return RequestID(Logging(log)(Recovery(log)(h)))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey).(string)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	generated := rec.Header().Get(RequestIDHeader)
	if len(generated) != 32 || seen != generated {
		t.Errorf("expected a 32 char id shared by header and context, got header %q context %q", generated, seen)
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "client-id" || seen != "client-id" {
		t.Errorf("expected client id to be kept, got %q", rec.Header().Get(RequestIDHeader))
	}

	if generateRequestID() == generateRequestID() {
		t.Error("expected unique request ids")
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNoContent, "INFO"},
		{http.StatusForbidden, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		h := chain(jsonLogger(&buf), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/animation-results", nil))

		var completed map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			var entry map[string]any
			if err := json.Unmarshal([]byte(line), &entry); err == nil && entry["msg"] == "request completed" {
				completed = entry
			}
		}
		if completed == nil {
			t.Fatalf("status %d: no completion line in %s", tt.status, buf.String())
		}
		if completed["level"] != tt.level || completed["status"] != float64(tt.status) {
			t.Errorf("status %d: got level %v status %v", tt.status, completed["level"], completed["status"])
		}
		if completed["path"] != "/animation-results" || completed["request_id"] == nil {
			t.Errorf("status %d: missing request fields %v", tt.status, completed)
		}
		if _, ok := completed["duration_ms"]; !ok {
			t.Errorf("status %d: missing duration_ms", tt.status)
		}
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := chain(jsonLogger(&buf), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/upload", nil))

	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("expected 500 INTERNAL_ERROR, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected panic to be logged, got %s", buf.String())
	}
}

func TestResponseWriter(t *testing.T) {
	rw := wrapResponseWriter(httptest.NewRecorder())
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	rw.WriteHeader(http.StatusTeapot)
	if rw.status != http.StatusOK || rw.size != 5 {
		t.Errorf("expected implicit 200 and size 5, got %d %d", rw.status, rw.size)
	}

	rw = wrapResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusNoContent)
	rw.WriteHeader(http.StatusOK)
	if rw.status != http.StatusNoContent {
		t.Errorf("expected first status to stick, got %d", rw.status)
	}
}

func TestWrapHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"success", nil, http.StatusOK, "", ""},
		{"missing field", errors.MissingField("pres"), http.StatusBadRequest, "BAD_REQUEST", "pres"},
		{"forbidden", errors.Forbidden("invalid key"), http.StatusForbidden, "FORBIDDEN", ""},
		{"unprocessable", errors.Unprocessable("document is not a presentation"), http.StatusUnprocessableEntity, "UNPROCESSABLE", ""},
		{"not found", errors.NotFound("job", "job-1"), http.StatusNotFound, "NOT_FOUND", ""},
		{"plain error", stderrors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := WrapHandler(jsonLogger(&buf), func(w http.ResponseWriter, r *http.Request) error {
				return tt.err
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("POST", "/upload", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.err == nil {
				return
			}

			var env errorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if env.Error.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, env.Error.Code)
			}
			if tt.field != "" && env.Error.Details["field"] != tt.field {
				t.Errorf("expected field detail %q, got %v", tt.field, env.Error.Details)
			}
		})
	}
}
