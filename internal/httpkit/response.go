package httpkit

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteArchive streams a zip archive as an attachment named name.
func WriteArchive(w http.ResponseWriter, name string, size int64, body io.Reader) error {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, err := io.Copy(w, body)
	return err
}

// NoContent answers a poll that has nothing ready.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
