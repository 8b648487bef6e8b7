package handlers

import (
	"net/http"

	"pagemotion/internal/httpkit"
	"pagemotion/internal/jobs"
	"pagemotion/internal/pkg/errors"
)

// AnimationResults hands out every finished animate result.
func (h *Handler) AnimationResults(w http.ResponseWriter, r *http.Request) error {
	return h.poll(w, r, jobs.KindAnimate)
}

// FormResults hands out every finished metadata result.
func (h *Handler) FormResults(w http.ResponseWriter, r *http.Request) error {
	return h.poll(w, r, jobs.KindMetadata)
}

// poll answers 204 when nothing is ready, otherwise streams one archive
// holding response/<jobID>/... for each finished job.
func (h *Handler) poll(w http.ResponseWriter, r *http.Request, kind jobs.Kind) error {
	ctx := r.Context()

	p, ok := h.pipelines[kind]
	if !ok {
		return errors.Newf(errors.CodeInternal, "no result pipeline for %s", kind)
	}

	archive, err := p.Poll(ctx)
	if err != nil {
		return err
	}
	if archive == nil {
		httpkit.NoContent(w)
		return nil
	}
	defer archive.Close()

	if err := httpkit.WriteArchive(w, archive.Name, archive.Size, archive.File); err != nil {
		// Headers are gone; the client sees a truncated body.
		h.log.FromContext(ctx).Warn("archive transfer interrupted", "kind", string(kind), "error", err.Error())
	}
	return nil
}
