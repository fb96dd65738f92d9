package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/pretty"

	"github.com/storefrontlabs/catalog-etl/internal/catalog"
)

var (
	// ErrPersistenceFailed means the snapshot could not be written
	// (permissions, disk full).
	ErrPersistenceFailed = errors.New("snapshot persistence failed")
	// ErrMalformedSnapshot means the snapshot content could not be read back
	// as a record sequence.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

const nameFormat = "20060102_150405"

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// Writer persists raw payloads under a directory with timestamped names.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes the payload as indented UTF-8 JSON (non-ASCII preserved)
// to products_<timestamp>.json under the writer's directory, creating missing
// parents, and returns the resulting path.
//
// Timestamps have one-second granularity: two writes within the same second
// produce the same name and the second silently overwrites the first. This
// matches the upstream snapshot layout and is intentional.
func (w *Writer) Write(payload catalog.RawPayload) (string, error) {
	name := fmt.Sprintf("products_%s.json", w.now().Format(nameFormat))
	path := filepath.Join(w.dir, name)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	b, err := marshalPretty(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return path, nil
}

func marshalPretty(payload catalog.RawPayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep non-ASCII and HTML characters exactly as received.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return pretty.Pretty(buf.Bytes()), nil
}

// Read loads a snapshot back as a record sequence. Any read or parse failure
// surfaces as ErrMalformedSnapshot.
func Read(path string) (catalog.RawPayload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	var payload catalog.RawPayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if payload == nil {
		// JSON null decodes without error but is not a record sequence.
		return nil, fmt.Errorf("%w: not a record array", ErrMalformedSnapshot)
	}
	return payload, nil
}
