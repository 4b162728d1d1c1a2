package viz

import (
	"encoding/json"
	"io"
)

// JSONWriter renders CycleRecords as line-delimited JSON objects, one
// per cycle, each carrying its per-stage entries, active hazards, and
// predictor/cache counters alongside the flat fields. Using an
// encoder streamed directly against the destination writer (rather
// than marshaling a slice) keeps memory flat on runs spanning millions
// of cycles.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter creates a JSONWriter writing to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// WriteCycle encodes rec as a single JSON object followed by a
// newline.
func (j *JSONWriter) WriteCycle(rec CycleRecord) error {
	return j.enc.Encode(rec)
}

// Close is a no-op: json.Encoder has no internal buffering to flush.
func (j *JSONWriter) Close() error {
	return nil
}
