// Package ledger keeps a cross-system index of biological samples and codex
// discoveries in a local SQLite database. The per-system cache only holds the
// current state of each system; the ledger answers questions such as "which
// genera have I fully analysed anywhere".
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on every open. IF NOT EXISTS keeps it
// idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS organics (
    system_address INTEGER NOT NULL,
    body_id        INTEGER NOT NULL,
    genus_id       TEXT NOT NULL,
    genus          TEXT NOT NULL DEFAULT '',
    species        TEXT NOT NULL DEFAULT '',
    variant        TEXT NOT NULL DEFAULT '',
    scanned_count  INTEGER NOT NULL DEFAULT 0,
    updated_at     TEXT NOT NULL,
    PRIMARY KEY (system_address, body_id, genus_id)
);

CREATE TABLE IF NOT EXISTS codex (
    system_address INTEGER NOT NULL,
    body_id        INTEGER NOT NULL,
    codex_id       TEXT NOT NULL,
    name           TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    is_new         BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at     TEXT NOT NULL,
    PRIMARY KEY (system_address, body_id, codex_id)
);
`

// Organic is one genus sampled on one body.
type Organic struct {
	SystemAddress int64
	BodyID        int
	GenusID       string
	Genus         string
	Species       string
	Variant       string
	ScannedCount  int
	UpdatedAt     time.Time
}

// Codex is one codex entry logged on one body.
type Codex struct {
	SystemAddress int64
	BodyID        int
	CodexID       string
	Name          string
	Category      string
	IsNew         bool
	UpdatedAt     time.Time
}

// SQLite is a ledger backed by a SQLite database in WAL mode.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path.
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}

	// SQLite has a single writer; one pooled connection avoids SQLITE_BUSY
	// between connections that would each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (l *SQLite) Close() error {
	return l.db.Close()
}

// RecordOrganic upserts a sampling record. The scan count never decreases,
// and names already stored are kept when the new record leaves them empty.
func (l *SQLite) RecordOrganic(ctx context.Context, o Organic) error {
	const q = `
		INSERT INTO organics (system_address, body_id, genus_id, genus, species, variant, scanned_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(system_address, body_id, genus_id) DO UPDATE SET
			genus         = CASE WHEN excluded.genus   = '' THEN organics.genus   ELSE excluded.genus   END,
			species       = CASE WHEN excluded.species = '' THEN organics.species ELSE excluded.species END,
			variant       = CASE WHEN excluded.variant = '' THEN organics.variant ELSE excluded.variant END,
			scanned_count = MAX(organics.scanned_count, excluded.scanned_count),
			updated_at    = excluded.updated_at`
	_, err := l.db.ExecContext(ctx, q,
		o.SystemAddress, o.BodyID, o.GenusID, o.Genus, o.Species, o.Variant, o.ScannedCount, formatTimestamp(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("ledger: record organic %s on %d/%d: %w", o.GenusID, o.SystemAddress, o.BodyID, err)
	}
	return nil
}

// RecordCodex upserts a codex record. is_new is sticky once set.
func (l *SQLite) RecordCodex(ctx context.Context, c Codex) error {
	const q = `
		INSERT INTO codex (system_address, body_id, codex_id, name, category, is_new, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(system_address, body_id, codex_id) DO UPDATE SET
			name       = CASE WHEN excluded.name = '' THEN codex.name ELSE excluded.name END,
			category   = excluded.category,
			is_new     = codex.is_new OR excluded.is_new,
			updated_at = excluded.updated_at`
	_, err := l.db.ExecContext(ctx, q,
		c.SystemAddress, c.BodyID, c.CodexID, c.Name, c.Category, c.IsNew, formatTimestamp(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("ledger: record codex %s on %d/%d: %w", c.CodexID, c.SystemAddress, c.BodyID, err)
	}
	return nil
}

// Organics returns sampling records ordered by system, body, and genus. A
// zero systemAddress returns every system.
func (l *SQLite) Organics(ctx context.Context, systemAddress int64) ([]Organic, error) {
	const q = `
		SELECT system_address, body_id, genus_id, genus, species, variant, scanned_count, updated_at
		FROM organics
		WHERE ? = 0 OR system_address = ?
		ORDER BY system_address, body_id, genus_id`
	rows, err := l.db.QueryContext(ctx, q, systemAddress, systemAddress)
	if err != nil {
		return nil, fmt.Errorf("ledger: query organics: %w", err)
	}
	defer rows.Close()

	var out []Organic
	for rows.Next() {
		var o Organic
		var ts string
		if err := rows.Scan(&o.SystemAddress, &o.BodyID, &o.GenusID, &o.Genus, &o.Species, &o.Variant, &o.ScannedCount, &ts); err != nil {
			return nil, fmt.Errorf("ledger: scan organic: %w", err)
		}
		if o.UpdatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("ledger: parse organic timestamp: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate organics: %w", err)
	}
	return out, nil
}

// Codex returns codex records ordered by system, body, and codex id. A zero
// systemAddress returns every system.
func (l *SQLite) Codex(ctx context.Context, systemAddress int64) ([]Codex, error) {
	const q = `
		SELECT system_address, body_id, codex_id, name, category, is_new, updated_at
		FROM codex
		WHERE ? = 0 OR system_address = ?
		ORDER BY system_address, body_id, codex_id`
	rows, err := l.db.QueryContext(ctx, q, systemAddress, systemAddress)
	if err != nil {
		return nil, fmt.Errorf("ledger: query codex: %w", err)
	}
	defer rows.Close()

	var out []Codex
	for rows.Next() {
		var c Codex
		var ts string
		if err := rows.Scan(&c.SystemAddress, &c.BodyID, &c.CodexID, &c.Name, &c.Category, &c.IsNew, &ts); err != nil {
			return nil, fmt.Errorf("ledger: scan codex: %w", err)
		}
		if c.UpdatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("ledger: parse codex timestamp: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate codex: %w", err)
	}
	return out, nil
}

// timestampFormats lists the layouts parseTimestamp accepts. Rows written by
// this package use the first; the second covers rows edited by hand with
// SQLite's own datetime functions.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.DateTime,
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
