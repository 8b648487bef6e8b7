package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"pagemotion/internal/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBlockCrawlers(t *testing.T) {
	handler := BlockCrawlers(okHandler())

	tests := []struct {
		agent  string
		status int
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1)", http.StatusNotFound},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", http.StatusNotFound},
		{"curl/8.4.0", http.StatusOK},
		{"", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("User-Agent", tt.agent)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestSharedSecret(t *testing.T) {
	handler := SharedSecret(logger.Discard(), "s3cret", 1<<20)(okHandler())

	t.Run("query key accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/form-results?key=s3cret", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing key forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/form-results", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "FORBIDDEN") {
			t.Errorf("expected FORBIDDEN in body, got %s", rec.Body.String())
		}
	})

	t.Run("wrong key forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/form-results?key=nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("multipart key accepted", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("key", "s3cret")
		_ = mw.Close()

		req := httptest.NewRequest("POST", "/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	handler := RateLimit(logger.Discard(), limiter)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("POST", "/upload", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("POST", "/upload", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", second.Code)
	}
}
