package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pagemotion/internal/jobs"
	"pagemotion/internal/pkg/errors"
)

// OutputHandler owns the result directories handed to the result pipelines.
type OutputHandler struct {
	resultsRoot string
}

func NewOutputHandler(resultsRoot string) *OutputHandler {
	return &OutputHandler{resultsRoot: resultsRoot}
}

// Prepare creates an empty result directory for job. A leftover directory
// from an earlier attempt is replaced.
func (oh *OutputHandler) Prepare(job jobs.Job) (string, error) {
	dir := filepath.Join(oh.resultsRoot, fmt.Sprintf("%s-%s", job.ID, job.Kind()))
	if err := os.RemoveAll(dir); err != nil {
		return "", errors.Wrap(err, "processor.outputs", "reset result directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "processor.outputs", "create result directory")
	}
	return dir, nil
}

// WriteFailure replaces the contents of dir with a single error.json.
func (oh *OutputHandler) WriteFailure(dir string, failure jobs.Failure) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	body, err := json.MarshalIndent(failure, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, jobs.FailureFile), body, 0o644)
}
