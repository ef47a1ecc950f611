package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/status"
)

// Pipeline runs the three live workers: the journal tailer, the dispatcher
// that feeds tailed lines to the engine, and the status watcher.
type Pipeline struct {
	engine  *Engine
	tailer  *journal.Tailer
	watcher *status.Watcher
	lines   chan string

	paused atomic.Bool
	busy   sync.Mutex // held by the dispatcher while it may apply a line

	wg sync.WaitGroup
}

// NewPipeline wires the workers for e using its configuration.
func NewPipeline(e *Engine) (*Pipeline, error) {
	cfg := e.Config()
	tailer, err := journal.NewTailer(cfg.JournalDir,
		journal.WithTailInterval(cfg.TailInterval),
		journal.WithTailLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}
	watcher := status.New(cfg.StatusFile, e,
		status.WithInterval(cfg.StatusInterval),
		status.WithLogger(e.logger),
	)
	return &Pipeline{
		engine:  e,
		tailer:  tailer,
		watcher: watcher,
		lines:   make(chan string, cfg.LineBuffer),
	}, nil
}

// Tailer returns the journal tailer.
func (p *Pipeline) Tailer() *journal.Tailer { return p.tailer }

// Start launches the workers. They stop when ctx is cancelled; Wait blocks
// until they have.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(3)
	go func() {
		defer p.wg.Done()
		if err := p.tailer.Run(ctx, p.lines); err != nil {
			p.engine.errorf("%v", err)
		}
	}()
	go func() {
		defer p.wg.Done()
		p.dispatch(ctx)
	}()
	go func() {
		defer p.wg.Done()
		if err := p.watcher.Run(ctx); err != nil {
			p.engine.errorf("%v", err)
		}
	}()
}

// Wait blocks until every worker has exited.
func (p *Pipeline) Wait() { p.wg.Wait() }

// Pause suspends the tailer, then the dispatcher, then the status watcher.
// When it returns no worker is mid-update and none will start one until
// Resume. Lines already tailed stay queued.
func (p *Pipeline) Pause() {
	p.tailer.Pause()
	p.paused.Store(true)
	p.busy.Lock()
	p.busy.Unlock() //nolint:staticcheck // barrier
	p.watcher.Pause()
}

// Resume restarts the workers in the reverse order of Pause.
func (p *Pipeline) Resume() {
	p.watcher.Resume()
	p.paused.Store(false)
	p.tailer.Resume()
}

// Paused reports whether the dispatcher is paused.
func (p *Pipeline) Paused() bool { return p.paused.Load() }

func (p *Pipeline) dispatch(ctx context.Context) {
	interval := p.engine.Config().TailInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if p.paused.Load() {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		p.busy.Lock()
		if p.paused.Load() {
			p.busy.Unlock()
			continue
		}
		select {
		case <-ctx.Done():
			p.busy.Unlock()
			return
		case line := <-p.lines:
			p.engine.ApplyLine(line)
		case <-ticker.C:
		}
		p.busy.Unlock()
	}
}
