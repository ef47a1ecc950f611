package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	filePrefix = "Journal."
	fileSuffix = ".log"
)

// ParseFileName splits a journal file name of the form
// Journal.<token>.<seq>.log into its timestamp token and sequence number.
func ParseFileName(name string) (token string, seq int, ok bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return "", 0, false
	}
	mid := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	dot := strings.LastIndexByte(mid, '.')
	if dot <= 0 {
		return "", 0, false
	}
	seq, err := strconv.Atoi(mid[dot+1:])
	if err != nil {
		return "", 0, false
	}
	return mid[:dot], seq, true
}

// IsJournalFile reports whether name looks like a journal file.
func IsJournalFile(name string) bool {
	_, _, ok := ParseFileName(name)
	return ok
}

// Layouts tried, in order, for tokens containing hyphens.
var isoLayouts = []string{
	"2006-01-02T150405",
	"2006-01-02T15:04:05",
	"2006-01-02 150405",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseToken interprets the timestamp token of a journal file name.
//
// Numeric tokens are ambiguous at lengths 12 and 10: when the first four
// digits form a year in [1900, 2099] the long-year reading is tried first,
// otherwise the two-digit-year reading (20YY). If the preferred reading is
// not a valid date the other one is tried.
func ParseToken(token string) (time.Time, bool) {
	if strings.Contains(token, "-") {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, token); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if !isDigits(token) {
		return time.Time{}, false
	}

	const (
		long14  = "20060102150405"
		long12  = "200601021504"
		long10  = "2006010215"
		long8   = "20060102"
		short12 = "060102150405"
		short10 = "0601021504"
		short6  = "060102"
	)

	switch len(token) {
	case 14:
		return parseLayout(long14, token)
	case 12:
		return parseAmbiguous(token, long12, short12)
	case 10:
		return parseAmbiguous(token, long10, short10)
	case 8:
		return parseLayout(long8, token)
	case 6:
		return parseShortYear(short6, token)
	}
	return time.Time{}, false
}

func parseAmbiguous(token, longLayout, shortLayout string) (time.Time, bool) {
	year, _ := strconv.Atoi(token[:4])
	if year >= 1900 && year <= 2099 {
		if t, ok := parseLayout(longLayout, token); ok {
			return t, true
		}
		return parseShortYear(shortLayout, token)
	}
	if t, ok := parseShortYear(shortLayout, token); ok {
		return t, true
	}
	return parseLayout(longLayout, token)
}

// parseShortYear parses a two-digit-year token as 20YY, which Go's "06"
// layout element would otherwise map to 19YY for YY >= 69.
func parseShortYear(layout, token string) (time.Time, bool) {
	return parseLayout("20"+layout, "20"+token)
}

func parseLayout(layout, token string) (time.Time, bool) {
	t, err := time.Parse(layout, token)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type rankedFile struct {
	name string
	at   time.Time
	seq  int
}

// Latest returns the chronologically newest journal among names. Names whose
// token does not parse are excluded from ranking; if none parse, the
// lexicographically greatest name is returned.
func Latest(names []string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	var ranked []rankedFile
	for _, n := range names {
		token, seq, ok := ParseFileName(n)
		if !ok {
			continue
		}
		at, ok := ParseToken(token)
		if !ok {
			continue
		}
		ranked = append(ranked, rankedFile{name: n, at: at, seq: seq})
	}
	if len(ranked) == 0 {
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		return sorted[len(sorted)-1], true
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.name < b.name
	})
	return ranked[len(ranked)-1].name, true
}

// journalNames lists the journal file names in dir.
func journalNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("journal: read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsJournalFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// LatestInDir returns the path of the newest journal file in dir.
func LatestInDir(dir string) (string, error) {
	names, err := journalNames(dir)
	if err != nil {
		return "", err
	}
	name, ok := Latest(names)
	if !ok {
		return "", fmt.Errorf("journal: %s: %w", dir, ErrNoJournal)
	}
	return filepath.Join(dir, name), nil
}

// ListByModTime returns every journal file in dir, oldest modification first.
func ListByModTime(dir string) ([]string, error) {
	names, err := journalNames(dir)
	if err != nil {
		return nil, err
	}
	type stamped struct {
		path string
		mod  time.Time
	}
	files := make([]stamped, 0, len(names))
	for _, n := range names {
		path := filepath.Join(dir, n)
		info, err := os.Stat(path)
		if err != nil {
			continue // removed since listing
		}
		files = append(files, stamped{path: path, mod: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.Before(files[j].mod)
		}
		return files[i].path < files[j].path
	})
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// CheckDir verifies that dir exists and is a directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("journal: %s: %w: %v", dir, ErrJournalDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("journal: %s: %w: not a directory", dir, ErrJournalDir)
	}
	return nil
}
