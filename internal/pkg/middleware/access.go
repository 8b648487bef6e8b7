package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/pkg/logger"
)

// KeyField is the form/query field carrying the shared secret.
const KeyField = "key"

// CrawlerTokens are user-agent fragments of search crawlers. Matching
// requests are answered with 404 so the API never gets indexed.
var CrawlerTokens = []string{
	"APIs-Google",
	"AdsBot-Google",
	"Mediapartners-Google",
	"Googlebot",
	"FeedFetcher-Google",
	"Google-Read-Aloud",
	"DuplexWeb-Google",
	"googleweblight",
	"bingbot",
	"duckduckbot",
}

// BlockCrawlers hides every route from search crawlers.
func BlockCrawlers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent := r.UserAgent()
		for _, token := range CrawlerTokens {
			if strings.Contains(agent, token) {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SharedSecret rejects requests whose "key" field does not match secret.
// Multipart bodies are parsed with maxMemory so handlers can read
// r.MultipartForm afterwards; the check runs before anything is persisted.
func SharedSecret(log *logger.Logger, secret string, maxMemory int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				if err := r.ParseMultipartForm(maxMemory); err != nil {
					HandleError(w, r, log, errors.WrapWithCode(err, errors.CodeBadRequest, "auth.parse", "invalid multipart form"))
					return
				}
			}

			supplied := r.FormValue(KeyField)
			if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
				HandleError(w, r, log, errors.Forbidden("missing or invalid key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit sheds requests above the limiter's rate with 429.
func RateLimit(log *logger.Logger, limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow() {
				HandleError(w, r, log, errors.New(errors.CodeTooManyReqs, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
