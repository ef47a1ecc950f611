package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/telemetry"
)

// maxLineSize bounds a single journal line read during replay.
const maxLineSize = 4 << 20

// Pauser is a set of workers the historian suspends while it rebuilds.
type Pauser interface {
	Pause()
	Resume()
}

// Result summarises a replay.
type Result struct {
	Files   int // journal files read
	Lines   int // non-blank lines seen
	Applied int // lines decoded and applied
	Skipped int // lines that failed to decode
}

// Historian rebuilds the cache from every journal in the directory.
type Historian struct {
	engine *Engine
	pauser Pauser
}

// NewHistorian returns a historian for e. p may be nil when no live pipeline
// is running.
func NewHistorian(e *Engine, p Pauser) *Historian {
	return &Historian{engine: e, pauser: p}
}

// Replay pauses the live workers, wipes the cache, and re-applies every
// journal in modification-time order without notifying listeners or moving
// the timestamp gate. The workers are resumed even when replay fails or ctx
// is cancelled.
func (h *Historian) Replay(ctx context.Context) (Result, error) {
	var res Result
	e := h.engine

	if h.pauser != nil {
		h.pauser.Pause()
		defer h.pauser.Resume()
	}

	saved, err := e.beginReplay()
	if err != nil {
		return res, err
	}
	defer e.endReplay(saved)

	files, err := journal.ListByModTime(e.cfg.JournalDir)
	if err != nil {
		return res, fmt.Errorf("engine: replay: %w", err)
	}
	start := time.Now()
	_ = e.telemetry.Emit(telemetry.Event{Timestamp: start.UTC(), Kind: telemetry.KindReplayStart, Data: map[string]int{"files": len(files)}})

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := h.replayFile(ctx, path, &res); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			e.warnf("replay %s: %v", filepath.Base(path), err)
			continue
		}
		res.Files++
	}

	_ = e.telemetry.Emit(telemetry.Event{
		Timestamp: time.Now().UTC(),
		Kind:      telemetry.KindReplayDone,
		Data: map[string]any{
			"files":   res.Files,
			"lines":   res.Lines,
			"applied": res.Applied,
			"skipped": res.Skipped,
			"elapsed": time.Since(start).String(),
		},
	})
	return res, nil
}

func (h *Historian) replayFile(ctx context.Context, path string, res *Result) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.engine.applyLines(ctx, f, ApplyFlags{Silent: true, SkipGate: true}, res)
}

// applyLines decodes and applies every non-blank line of r with flags.
func (e *Engine) applyLines(ctx context.Context, r io.Reader, flags ApplyFlags, res *Result) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res.Lines++
		ev, err := journal.Decode([]byte(line))
		if err != nil {
			e.warnf("%v", err)
			res.Skipped++
			continue
		}
		e.Apply(ev, flags)
		res.Applied++
	}
	return scanner.Err()
}

// liveState is what a replay must not disturb.
type liveState struct {
	player  model.PlayerContext
	label   bodyLabel
	pending string
}

// beginReplay wipes the cache and the in-memory systems so replayed events
// are not applied on top of existing state. The player's live context is
// returned for endReplay; the position is cleared so replayed samples do not
// pick up the current coordinates.
func (e *Engine) beginReplay() (liveState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	saved := liveState{player: e.player, label: e.label, pending: e.pending}
	if err := e.store.Wipe(); err != nil {
		return saved, fmt.Errorf("engine: replay: %w", err)
	}
	e.systems = make(map[int64]*model.System)
	e.player.System = nil
	e.player.TargetID = nil
	e.player.Position = nil
	e.player.Ship = model.DefaultShipStatus()
	e.pending = ""
	return saved, nil
}

// endReplay restores the player's live context. The current system is taken
// from the rebuilt state so readers see the replayed result.
func (e *Engine) endReplay(saved liveState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.player.TargetID = saved.player.TargetID
	e.player.Position = saved.player.Position
	e.player.Ship = saved.player.Ship
	e.label = saved.label
	e.pending = saved.pending
	e.player.System = nil
	if saved.player.System != nil {
		e.enter(saved.player.System.Address)
	}
}
