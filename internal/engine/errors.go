package engine

import (
	"errors"

	"github.com/papapumpkin/parallax/internal/journal"
)

// ErrJournalDir is returned by New when the journal directory is missing.
var ErrJournalDir = journal.ErrJournalDir

// ErrNoPosition is returned by Navigate when the player is not on a surface
// or the planet radius is unknown.
var ErrNoPosition = errors.New("no surface position")
