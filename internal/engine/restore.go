package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/papapumpkin/parallax/internal/journal"
)

// Restore re-reads the newest journal without notifying listeners, so a
// freshly started engine knows the current system and ship before any new
// line arrives. Events already behind the timestamp gate only reposition the
// player; newer ones are applied and advance the gate. A directory without
// journals is not an error.
func (e *Engine) Restore(ctx context.Context) (Result, error) {
	var res Result
	path, err := journal.LatestInDir(e.cfg.JournalDir)
	if errors.Is(err, journal.ErrNoJournal) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("engine: restore: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("engine: restore: %w", err)
	}
	defer f.Close()

	if err := e.applyLines(ctx, f, ApplyFlags{Silent: true}, &res); err != nil {
		return res, fmt.Errorf("engine: restore: %w", err)
	}
	res.Files = 1
	return res, nil
}
