package httpkit

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSOptions configures cross-origin access for browser clients that
// upload presentations and download result archives.
type CORSOptions struct {
	// AllowedOrigins lists exact origins; "*" allows any origin.
	AllowedOrigins []string
	// ExposedHeaders are readable by scripts, e.g. Content-Disposition of an archive.
	ExposedHeaders []string
	MaxAgeSeconds  int
}

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Accept", "X-Request-ID"}, ", ")
)

func CORS(opt CORSOptions) func(http.Handler) http.Handler {
	maxAge := strconv.Itoa(orDefault(opt.MaxAgeSeconds, 600))
	exposed := strings.Join(opt.ExposedHeaders, ", ")
	origins := normalizeList(opt.AllowedOrigins)
	anyOrigin := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && (anyOrigin || slices.Contains(origins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", maxAge)
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
