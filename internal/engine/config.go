package engine

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/ledger"
	"github.com/papapumpkin/parallax/internal/status"
	"github.com/papapumpkin/parallax/internal/telemetry"
)

// DefaultLineBuffer is the capacity of the queue between tailer and dispatcher.
const DefaultLineBuffer = 1024

// Config holds the paths and intervals the engine and its workers run with.
// Only JournalDir is required.
type Config struct {
	JournalDir     string
	CacheDir       string        // defaults to JournalDir/cache
	StatusFile     string        // defaults to JournalDir/Status.json
	TailInterval   time.Duration // idle sleep of tailer and dispatcher
	StatusInterval time.Duration
	LineBuffer     int
}

func (c Config) withDefaults() Config {
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.JournalDir, "cache")
	}
	if c.StatusFile == "" {
		c.StatusFile = filepath.Join(c.JournalDir, status.FileName)
	}
	if c.TailInterval <= 0 {
		c.TailInterval = journal.DefaultTailInterval
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = status.DefaultInterval
	}
	if c.LineBuffer <= 0 {
		c.LineBuffer = DefaultLineBuffer
	}
	return c
}

// Recorder receives discovery records for the cross-system ledger.
type Recorder interface {
	RecordOrganic(ctx context.Context, o ledger.Organic) error
	RecordCodex(ctx context.Context, c ledger.Codex) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the log output writer. Nil defaults to os.Stderr.
func WithLogger(w io.Writer) Option {
	return func(e *Engine) { e.logger = w }
}

// WithRecorder attaches a discovery ledger.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithReadOnly keeps every change in memory. Nothing is persisted, not even
// the timestamp gate.
func WithReadOnly() Option {
	return func(e *Engine) { e.readOnly = true }
}

// WithTelemetry attaches an activity log.
func WithTelemetry(em *telemetry.Emitter) Option {
	return func(e *Engine) { e.telemetry = em }
}
