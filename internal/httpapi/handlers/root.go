package handlers

import (
	"net/http"
)

// Root is a plain liveness page for deployment checks.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<h1>pagemotion is working properly</h1>"))
}
