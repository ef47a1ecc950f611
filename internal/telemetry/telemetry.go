// Package telemetry provides a JSONL activity log of the journal events the
// engine applies. Each jump, scan, signal report, codex entry, sample, and
// target change is recorded as one structured JSON line, so a session can be
// audited or followed live from another terminal.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindJump        = "jump"
	KindLocation    = "location"
	KindBodyCount   = "body_count"
	KindScan        = "scan"
	KindSignals     = "signals"
	KindCodex       = "codex"
	KindOrganic     = "organic"
	KindShip        = "ship"
	KindTarget      = "target"
	KindReplayStart = "replay_start"
	KindReplayDone  = "replay_done"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, and optional context identifiers (system, body) along with
// arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	System    int64     `json:"system,omitempty"`
	Body      *int      `json:"body,omitempty"`
	Name      string    `json:"name,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file and its parent directory are created if they do not exist;
// an existing file is appended to.
func NewEmitter(path string) (*Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes a single event to the JSONL file. It is safe for concurrent use.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// Decode parses one JSONL line back into an Event.
func Decode(line []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(line, &evt); err != nil {
		return Event{}, fmt.Errorf("telemetry: decode event: %w", err)
	}
	return evt, nil
}
