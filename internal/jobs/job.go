// Package jobs defines the units of work exchanged between submission, the
// worker and the result buffers.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind selects the pipeline that processes a job and the buffer that
// receives its result.
type Kind string

const (
	KindAnimate  Kind = "animate"
	KindMetadata Kind = "metadata"
)

// Kinds lists every job kind in enqueue priority order.
func Kinds() []Kind {
	return []Kind{KindAnimate, KindMetadata}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindAnimate || k == KindMetadata
}

// Payload is the kind-specific part of a job. The set of implementations is
// closed to this package.
type Payload interface {
	Kind() Kind
	payload()
}

// AnimatePayload asks for every page of a document to be composited over
// its snapshot. SnapshotKeys are in page order.
type AnimatePayload struct {
	DocumentKey  string   `json:"document_key"`
	SnapshotKeys []string `json:"snapshot_keys"`
}

// MetadataPayload asks for a document's notes, media references and
// embedded media.
type MetadataPayload struct {
	DocumentKey string `json:"document_key"`
	// ReleaseDocument deletes the spooled document once the job is done.
	ReleaseDocument bool `json:"release_document"`
}

func (AnimatePayload) Kind() Kind { return KindAnimate }
func (AnimatePayload) payload()   {}

func (MetadataPayload) Kind() Kind { return KindMetadata }
func (MetadataPayload) payload()   {}

// Job is one unit of work. Jobs from one submission share an ID.
type Job struct {
	ID         string
	Payload    Payload
	EnqueuedAt time.Time
}

// Kind is the kind of the job's payload.
func (j Job) Kind() Kind {
	if j.Payload == nil {
		return ""
	}
	return j.Payload.Kind()
}

// NewID returns a fresh submission identifier.
func NewID() string {
	return "job-" + uuid.NewString()
}

// New builds a job stamped with the current time.
func New(id string, payload Payload) Job {
	return Job{ID: id, Payload: payload, EnqueuedAt: time.Now().UTC()}
}

type envelope struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Payload    json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the job with its kind as the discriminator.
func (j Job) MarshalJSON() ([]byte, error) {
	if j.Payload == nil {
		return nil, fmt.Errorf("job %s has no payload", j.ID)
	}
	raw, err := json.Marshal(j.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{ID: j.ID, Kind: j.Kind(), EnqueuedAt: j.EnqueuedAt, Payload: raw})
}

// UnmarshalJSON decodes a job produced by MarshalJSON.
func (j *Job) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	var payload Payload
	switch env.Kind {
	case KindAnimate:
		var p AnimatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode animate payload: %w", err)
		}
		payload = p
	case KindMetadata:
		var p MetadataPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode metadata payload: %w", err)
		}
		payload = p
	default:
		return fmt.Errorf("unknown job kind %q", env.Kind)
	}

	*j = Job{ID: env.ID, Payload: payload, EnqueuedAt: env.EnqueuedAt}
	return nil
}
