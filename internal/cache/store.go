// Package cache persists per-system snapshots of the world model so a
// restart shows the last known state without re-reading journal history.
// Each system lives in its own TOML file named from its address; a separate
// file holds the dispatcher's last-processed timestamp.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/parallax/internal/model"
)

const (
	systemPrefix  = "system_"
	systemSuffix  = ".toml"
	gateFileName  = "last_processed.toml"
	tmpFileSuffix = ".tmp"
)

// Store reads and writes cache files under a single directory. It is safe
// for concurrent use.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// SystemPath returns the file a system's snapshot is written to.
func (s *Store) SystemPath(address int64) string {
	return filepath.Join(s.dir, systemPrefix+strconv.FormatInt(address, 10)+systemSuffix)
}

// LoadSystem reads the cached snapshot for address. found is false when no
// snapshot exists.
func (s *Store) LoadSystem(address int64) (sys *model.System, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.SystemPath(address))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: read system %d: %w", address, err)
	}
	var rec systemRecord
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("cache: parse system %d: %w", address, err)
	}
	// The file name is authoritative for the key.
	rec.Address = address
	return fromRecord(rec), true, nil
}

// SaveSystem writes the full snapshot of sys, replacing any previous one.
func (s *Store) SaveSystem(sys *model.System) error {
	data, err := toml.Marshal(toRecord(sys))
	if err != nil {
		return fmt.Errorf("cache: marshal system %d: %w", sys.Address, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(s.SystemPath(sys.Address), data); err != nil {
		return fmt.Errorf("cache: save system %d: %w", sys.Address, err)
	}
	return nil
}

// Systems lists the addresses of every cached system in ascending order.
func (s *Store) Systems() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: list %s: %w", s.dir, err)
	}
	var addrs []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, systemPrefix) || !strings.HasSuffix(name, systemSuffix) {
			continue
		}
		addr, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, systemPrefix), systemSuffix), 10, 64)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs, nil
}

// LoadGate returns the persisted last-processed timestamp, or the zero time
// when none has been written.
func (s *Store) LoadGate() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, gateFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("cache: read gate: %w", err)
	}
	var rec gateRecord
	if err := toml.Unmarshal(data, &rec); err != nil {
		return time.Time{}, fmt.Errorf("cache: parse gate: %w", err)
	}
	return rec.LastProcessed.UTC(), nil
}

// SaveGate persists the last-processed timestamp.
func (s *Store) SaveGate(t time.Time) error {
	data, err := toml.Marshal(gateRecord{LastProcessed: t.UTC()})
	if err != nil {
		return fmt.Errorf("cache: marshal gate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(filepath.Join(s.dir, gateFileName), data); err != nil {
		return fmt.Errorf("cache: save gate: %w", err)
	}
	return nil
}

// Wipe removes every system snapshot. The gate file and the directory
// itself are kept so the live pipeline resumes where it left off.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(s.dir, 0o755)
		}
		return fmt.Errorf("cache: wipe %s: %w", s.dir, err)
	}
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == gateFileName || !strings.HasPrefix(name, systemPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cache: wipe %s: %w", s.dir, err)
	}
	return nil
}

// writeAtomic writes data to a temp file and renames it over path. The
// directory is recreated if something removed it.
func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp := path + tmpFileSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
