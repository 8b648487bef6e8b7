package jobs

import "time"

// Status is the lifecycle state of one job kind of a submission.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one job. ContentPath is a directory owned by the
// result pipeline from the moment the result is published.
type Result struct {
	JobID       string    `json:"job_id"`
	Kind        Kind      `json:"kind"`
	ContentPath string    `json:"content_path"`
	Status      Status    `json:"status"`
	Code        string    `json:"code,omitempty"`
	Message     string    `json:"message,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Failed reports whether the job ended in error.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// Failure is written as error.json into a failed result's directory.
type Failure struct {
	JobID   string `json:"job_id"`
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FailureFile is the name of the failure artifact.
const FailureFile = "error.json"
