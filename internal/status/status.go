// Package status mirrors the game's frequently rewritten Status.json into
// the world model: surface position, heading, target body, and fuel.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileName is the status file the game writes next to its journals.
const FileName = "Status.json"

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = time.Second

// Snapshot is the decoded content of the status file. Pointer fields are nil
// when the game omits them.
type Snapshot struct {
	Timestamp    string       `json:"timestamp"`
	Flags        uint64       `json:"Flags"`
	Latitude     *float64     `json:"Latitude"`
	Longitude    *float64     `json:"Longitude"`
	Heading      *float64     `json:"Heading"`
	Altitude     *float64     `json:"Altitude"`
	BodyName     string       `json:"BodyName"`
	PlanetRadius *float64     `json:"PlanetRadius"`
	Destination  *Destination `json:"Destination"`
	Fuel         *Fuel        `json:"Fuel"`
}

// HasPosition reports whether latitude, longitude, and heading are all present.
func (s *Snapshot) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil && s.Heading != nil
}

// Destination is the player's current target.
type Destination struct {
	System int64  `json:"System"`
	Body   *int   `json:"Body"`
	Name   string `json:"Name"`
}

// Fuel is the current fuel level.
type Fuel struct {
	Main      float64 `json:"FuelMain"`
	Reservoir float64 `json:"FuelReservoir"`
}

// Decode parses status file content.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("status: decode: %w", err)
	}
	return &s, nil
}

// Sink receives each newly observed snapshot.
type Sink interface {
	ApplyStatus(*Snapshot)
}

// Watcher polls the status file and forwards changes to a Sink. Writes to
// the file also wake it early.
type Watcher struct {
	path     string
	sink     Sink
	interval time.Duration
	logger   io.Writer

	paused atomic.Bool

	mu      sync.Mutex // held for the duration of a poll
	last    []byte
	lastErr string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the log output writer. Nil defaults to os.Stderr.
func WithLogger(l io.Writer) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for the status file at path.
func New(path string, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{path: path, sink: sink, interval: DefaultInterval}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) log() io.Writer {
	if w.logger != nil {
		return w.logger
	}
	return os.Stderr
}

// Pause stops polling until Resume is called. A poll already in progress
// completes before Pause returns.
func (w *Watcher) Pause() {
	w.paused.Store(true)
	w.mu.Lock()
	w.mu.Unlock() //nolint:staticcheck // barrier
}

// Resume restarts polling. The next tick re-reads the file.
func (w *Watcher) Resume() { w.paused.Store(false) }

// Paused reports whether the watcher is paused.
func (w *Watcher) Paused() bool { return w.paused.Load() }

// Run polls until ctx is cancelled. fsnotify is best-effort: if the
// directory cannot be watched the watcher falls back to polling alone.
func (w *Watcher) Run(ctx context.Context) error {
	var events <-chan fsnotify.Event
	if fw, err := fsnotify.NewWatcher(); err == nil {
		defer fw.Close()
		if err := fw.Add(filepath.Dir(w.path)); err == nil {
			events = fw.Events
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Poll()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(ev.Name) == filepath.Base(w.path) && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				w.Poll()
			}
		}
	}
}

// Poll reads the status file once and forwards it if it changed. Read and
// parse failures are logged and leave existing state alone.
func (w *Watcher) Poll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused.Load() {
		return
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.warn(fmt.Errorf("status: read %s: %w", w.path, err))
		return
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		// The game truncates before rewriting; try again next tick.
		return
	}
	if bytes.Equal(data, w.last) {
		return
	}
	snap, err := Decode(data)
	if err != nil {
		w.warn(err)
		return
	}
	w.last = append(w.last[:0], data...)
	w.lastErr = ""
	w.sink.ApplyStatus(snap)
}

// warn logs err unless it repeats the previous failure.
func (w *Watcher) warn(err error) {
	msg := err.Error()
	if msg == w.lastErr {
		return
	}
	w.lastErr = msg
	fmt.Fprintf(w.log(), "warning: %s\n", msg)
}
