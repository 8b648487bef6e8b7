package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pagemotion/internal/httpkit"
	"pagemotion/internal/pkg/errors"
)

type kindStatus struct {
	Status    string    `json:"status"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type jobStatusResponse struct {
	JobID string                `json:"job_id"`
	Kinds map[string]kindStatus `json:"kinds"`
}

// JobStatus reports the ledger state of every job kind of a submission.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) error {
	jobID := strings.TrimSpace(chi.URLParam(r, "jobID"))
	if jobID == "" {
		return errors.MissingField("jobID")
	}

	entries, err := h.ledger.Get(r.Context(), jobID)
	if err != nil {
		return err
	}

	resp := jobStatusResponse{JobID: jobID, Kinds: make(map[string]kindStatus, len(entries))}
	for _, e := range entries {
		resp.Kinds[string(e.Kind)] = kindStatus{
			Status:    string(e.Status),
			Code:      e.Code,
			Message:   e.Message,
			UpdatedAt: e.UpdatedAt,
		}
	}
	httpkit.WriteJSON(w, http.StatusOK, resp)
	return nil
}
