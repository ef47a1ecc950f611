package journal

import "errors"

var (
	// ErrJournalDir indicates the journal directory is missing or not a directory.
	ErrJournalDir = errors.New("journal directory unavailable")
	// ErrNoJournal indicates the directory holds no journal files yet.
	ErrNoJournal = errors.New("no journal files found")
	// ErrMalformedEvent indicates a journal line could not be decoded or lacks
	// a field required to route it.
	ErrMalformedEvent = errors.New("malformed journal event")
)
