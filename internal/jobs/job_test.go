package jobs

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if !strings.HasPrefix(a, "job-") {
		t.Errorf("expected job- prefix, got %s", a)
	}
	if a == b {
		t.Error("expected unique ids")
	}
}

func TestJobEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{"animate", AnimatePayload{DocumentKey: "uploads/doc.pptx", SnapshotKeys: []string{"uploads/s1.png", "uploads/s2.png"}}},
		{"metadata", MetadataPayload{DocumentKey: "uploads/doc.pptx", ReleaseDocument: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := New("job-1", tt.payload)

			data, err := json.Marshal(job)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !strings.Contains(string(data), `"kind":"`+string(tt.payload.Kind())+`"`) {
				t.Errorf("expected kind discriminator in %s", data)
			}

			var decoded Job
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if decoded.ID != job.ID || decoded.Kind() != tt.payload.Kind() {
				t.Errorf("decoded %+v, want id %s kind %s", decoded, job.ID, tt.payload.Kind())
			}
			if !reflect.DeepEqual(decoded.Payload, tt.payload) {
				t.Errorf("payload = %#v, want %#v", decoded.Payload, tt.payload)
			}
		})
	}
}

func TestJobEnvelopeRejectsUnknownKind(t *testing.T) {
	var j Job
	err := json.Unmarshal([]byte(`{"id":"job-1","kind":"transcode","payload":{}}`), &j)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMarshalWithoutPayload(t *testing.T) {
	if _, err := json.Marshal(Job{ID: "job-1"}); err == nil {
		t.Error("expected error marshaling job without payload")
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 2 || kinds[0] != KindAnimate {
		t.Errorf("expected animate first, got %v", kinds)
	}
	for _, k := range kinds {
		if !k.Valid() {
			t.Errorf("expected %s to be valid", k)
		}
	}
	if Kind("other").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}
