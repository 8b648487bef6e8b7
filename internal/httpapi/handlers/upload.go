package handlers

import (
	"cmp"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"pagemotion/internal/httpkit"
	"pagemotion/internal/jobs"
	"pagemotion/internal/ledger"
	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/ports"
	"pagemotion/internal/pptx"
)

// DocumentField is the multipart field carrying the presentation. Every
// other file field is a page snapshot.
const DocumentField = "pres"

var (
	DocumentExtensions = []string{".pptx"}
	SnapshotExtensions = []string{".png", ".gif", ".jpg", ".jpeg", ".tif", ".tiff"}
)

type uploadResponse struct {
	JobID string `json:"jobID"`
}

type snapshotFile struct {
	field  string
	header *multipart.FileHeader
}

// Upload validates a submission, spools its files and enqueues the animate
// job (when snapshots were sent) followed by the metadata job.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	form := r.MultipartForm
	if form == nil {
		return errors.New(errors.CodeBadRequest, "multipart form required")
	}

	docs := form.File[DocumentField]
	if len(docs) == 0 {
		return errors.MissingField(DocumentField)
	}
	docHeader := docs[0]
	if !hasExtension(docHeader.Filename, DocumentExtensions) {
		return errors.Newf(errors.CodeBadRequest, "%s must be a %s file", DocumentField, strings.Join(DocumentExtensions, ", ")).
			WithField("field", DocumentField)
	}

	snapshots, err := collectSnapshots(form)
	if err != nil {
		return err
	}

	slides, err := countSlides(docHeader)
	if err != nil {
		return err
	}

	jobID := jobs.NewID()
	log = log.WithJobID(jobID)

	var spooled []string
	release := func() {
		for _, key := range spooled {
			_ = h.sp.DeleteObject(context.WithoutCancel(ctx), key)
		}
	}

	docKey, err := h.spool(ctx, docHeader, jobID+"/presentation"+strings.ToLower(filepath.Ext(docHeader.Filename)))
	if err != nil {
		return err
	}
	spooled = append(spooled, docKey)

	snapshotKeys := make([]string, 0, len(snapshots))
	for i, s := range snapshots {
		name := fmt.Sprintf("%s/slide%d%s", jobID, i+1, strings.ToLower(filepath.Ext(s.header.Filename)))
		key, err := h.spool(ctx, s.header, name)
		if err != nil {
			release()
			return err
		}
		spooled = append(spooled, key)
		snapshotKeys = append(snapshotKeys, key)
	}

	// Animation first: most documents have no GIFs, so it usually finishes sooner.
	var toEnqueue []jobs.Job
	if len(snapshotKeys) > 0 {
		toEnqueue = append(toEnqueue, jobs.New(jobID, jobs.AnimatePayload{DocumentKey: docKey, SnapshotKeys: snapshotKeys}))
	}
	toEnqueue = append(toEnqueue, jobs.New(jobID, jobs.MetadataPayload{DocumentKey: docKey, ReleaseDocument: true}))

	for i, job := range toEnqueue {
		// Recorded before the push so the worker's "running" always lands later.
		h.record(ctx, ledger.Entry{JobID: jobID, Kind: job.Kind(), Status: jobs.StatusQueued})
		if err := h.queue.Push(ctx, job); err != nil {
			h.record(ctx, ledger.Entry{JobID: jobID, Kind: job.Kind(), Status: jobs.StatusFailed, Code: string(errors.CodeInternal), Message: "queue push failed"})
			if i == 0 {
				release()
			}
			return errors.Wrap(err, "upload.enqueue", "queue push failed")
		}
	}

	log.Info("submission accepted",
		"slides", slides,
		"snapshots", len(snapshotKeys),
		"jobs", len(toEnqueue),
	)
	httpkit.WriteJSON(w, http.StatusOK, uploadResponse{JobID: jobID})
	return nil
}

// collectSnapshots returns every non-document file field in field-name
// order, comparing digit runs numerically so slide2 sorts before slide10.
func collectSnapshots(form *multipart.Form) ([]snapshotFile, error) {
	var out []snapshotFile
	for field, headers := range form.File {
		if field == DocumentField || len(headers) == 0 {
			continue
		}
		if !hasExtension(headers[0].Filename, SnapshotExtensions) {
			return nil, errors.Newf(errors.CodeBadRequest, "snapshot %s must be one of %s", field, strings.Join(SnapshotExtensions, ", ")).
				WithField("field", field)
		}
		out = append(out, snapshotFile{field: field, header: headers[0]})
	}
	slices.SortFunc(out, func(a, b snapshotFile) int {
		return NaturalCompare(a.field, b.field)
	})
	return out, nil
}

func countSlides(header *multipart.FileHeader) (int, error) {
	f, err := header.Open()
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeBadRequest, "upload.document", "read document")
	}
	defer f.Close()

	doc, err := pptx.OpenReader(f, header.Size)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return len(doc.Slides), nil
}

func (h *Handler) spool(ctx context.Context, header *multipart.FileHeader, key string) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeBadRequest, "upload.spool", "read upload")
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(key)); byExt != "" {
			contentType = byExt
		}
	}

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: contentType,
		Reader:      f,
		Size:        header.Size,
	})
	if err != nil {
		return "", errors.Wrap(err, "upload.spool", "storage put failed").WithField("object_key", key)
	}
	return out.ObjectKey, nil
}

func (h *Handler) record(ctx context.Context, e ledger.Entry) {
	if err := h.ledger.Record(ctx, e); err != nil {
		h.log.FromContext(ctx).Warn("ledger update failed", "job_id", e.JobID, "kind", string(e.Kind), "error", err.Error())
	}
}

func hasExtension(filename string, allowed []string) bool {
	return slices.Contains(allowed, strings.ToLower(filepath.Ext(filename)))
}

// NaturalCompare orders strings with embedded numbers by numeric value.
func NaturalCompare(a, b string) int {
	for a != "" && b != "" {
		ra, rb := leadingRun(a), leadingRun(b)
		if isDigit(ra[0]) && isDigit(rb[0]) {
			na, nb := strings.TrimLeft(ra, "0"), strings.TrimLeft(rb, "0")
			if len(na) != len(nb) {
				return cmp.Compare(len(na), len(nb))
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
		} else if c := strings.Compare(ra, rb); c != 0 {
			return c
		}
		a, b = a[len(ra):], b[len(rb):]
	}
	return cmp.Compare(len(a), len(b))
}

func leadingRun(s string) string {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
