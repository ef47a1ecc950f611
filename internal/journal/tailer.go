package journal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultTailInterval is how long the tailer sleeps when there is nothing to read.
const DefaultTailInterval = 250 * time.Millisecond

// Tailer follows the newest journal file in a directory and emits each
// completed line. It reads a file to EOF before switching to a newer one,
// so lines from an older journal always precede those of its successor.
type Tailer struct {
	dir      string
	interval time.Duration
	logger   io.Writer

	paused atomic.Bool

	mu      sync.Mutex // guards path for Current
	path    string
	file    *os.File
	reader  *bufio.Reader
	partial strings.Builder
}

// TailerOption configures a Tailer.
type TailerOption func(*Tailer)

// WithTailInterval sets the idle poll interval.
func WithTailInterval(d time.Duration) TailerOption {
	return func(t *Tailer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTailLogger sets the log output writer. Nil defaults to os.Stderr.
func WithTailLogger(w io.Writer) TailerOption {
	return func(t *Tailer) { t.logger = w }
}

// NewTailer creates a tailer for dir. It fails with ErrJournalDir when the
// directory does not exist.
func NewTailer(dir string, opts ...TailerOption) (*Tailer, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}
	t := &Tailer{dir: dir, interval: DefaultTailInterval}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Tailer) log() io.Writer {
	if t.logger != nil {
		return t.logger
	}
	return os.Stderr
}

// Pause stops reading and rotation until Resume is called.
func (t *Tailer) Pause() { t.paused.Store(true) }

// Resume continues tailing from the current offset.
func (t *Tailer) Resume() { t.paused.Store(false) }

// Paused reports whether the tailer is paused.
func (t *Tailer) Paused() bool { return t.paused.Load() }

// Current returns the path of the journal being tailed, or "" before the
// first file has been opened.
func (t *Tailer) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

// Run tails journals until ctx is cancelled, sending each line to out. Sends
// block, so a full channel throttles reading.
func (t *Tailer) Run(ctx context.Context, out chan<- string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("journal: create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(t.dir); err != nil {
		return fmt.Errorf("journal: watch %s: %w", t.dir, err)
	}
	defer t.close()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if t.paused.Load() {
			if !t.sleep(ctx) {
				return nil
			}
			continue
		}
		if t.file == nil {
			if !t.openLatest() && !t.wait(ctx, fw) {
				return nil
			}
			continue
		}

		if line, ok := t.readLine(); ok {
			select {
			case out <- line:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if t.rotate() {
			continue
		}
		if !t.wait(ctx, fw) {
			return nil
		}
	}
}

// readLine returns the next complete, non-empty line. A trailing fragment
// without a newline is kept until the rest of it is written.
func (t *Tailer) readLine() (string, bool) {
	for {
		chunk, err := t.reader.ReadString('\n')
		t.partial.WriteString(chunk)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(t.log(), "warning: journal: read %s: %v\n", t.path, err)
			}
			return "", false
		}
		line := strings.TrimRight(t.partial.String(), "\r\n")
		t.partial.Reset()
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, true
	}
}

// rotate switches to a newer journal if one has appeared.
func (t *Tailer) rotate() bool {
	latest, err := LatestInDir(t.dir)
	if err != nil || latest == t.path {
		return false
	}
	t.close()
	return t.open(latest)
}

func (t *Tailer) openLatest() bool {
	latest, err := LatestInDir(t.dir)
	if err != nil {
		return false
	}
	return t.open(latest)
}

func (t *Tailer) open(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(t.log(), "warning: journal: open %s: %v\n", path, err)
		return false
	}
	t.mu.Lock()
	t.path = path
	t.mu.Unlock()
	t.file = f
	t.reader = bufio.NewReader(f)
	t.partial.Reset()
	return true
}

func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
		t.reader = nil
	}
}

// wait blocks until the directory changes or the poll interval elapses. It
// returns false when ctx is done.
func (t *Tailer) wait(ctx context.Context, fw *fsnotify.Watcher) bool {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-fw.Events:
	case err, ok := <-fw.Errors:
		if ok {
			fmt.Fprintf(t.log(), "warning: journal: watch: %v\n", err)
		}
	case <-timer.C:
	}
	return true
}

func (t *Tailer) sleep(ctx context.Context) bool {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
