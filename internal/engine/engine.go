// Package engine owns the world model. It applies journal events and status
// snapshots to the current system and player context, persists every mutated
// system to the cache, and hands deep copies to readers.
//
// All model state sits behind one mutex. Side effects (cache writes, ledger
// rows, telemetry, listener callbacks) are collected while the mutex is held
// and performed after it is released, in mutation order.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/papapumpkin/parallax/internal/cache"
	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/ledger"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/status"
	"github.com/papapumpkin/parallax/internal/surface"
	"github.com/papapumpkin/parallax/internal/telemetry"
)

// ApplyFlags modify how a single event is applied. Replay sets both.
type ApplyFlags struct {
	Silent   bool // no listener callbacks and no telemetry
	SkipGate bool // neither consult nor advance the last-processed timestamp
}

// Engine is the world model and its event dispatcher. It is safe for
// concurrent use.
type Engine struct {
	cfg       Config
	store     *cache.Store
	logger    io.Writer
	recorder  Recorder
	telemetry *telemetry.Emitter
	readOnly  bool

	mu       sync.Mutex // guards the model fields below
	systems  map[int64]*model.System
	player   model.PlayerContext
	last     time.Time
	label    bodyLabel // name the game last reported with a body id
	pending  string    // status BodyName not yet among the current system's bodies

	// persistMu is acquired before mu is released, so effects are written in
	// the order their mutations happened.
	persistMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []func(bodyID int)
}

// New validates cfg, opens the cache, and loads the last-processed timestamp.
// It returns an error wrapping ErrJournalDir when the journal directory does
// not exist.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := journal.CheckDir(cfg.JournalDir); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		store:   store,
		systems: make(map[int64]*model.System),
		player:  model.PlayerContext{Ship: model.DefaultShipStatus()},
	}
	for _, opt := range opts {
		opt(e)
	}

	last, err := store.LoadGate()
	if err != nil {
		// An unreadable gate means every event in the newest journal is
		// applied again; the cache merge makes that harmless.
		e.warnf("%v", err)
	}
	e.last = last
	return e, nil
}

// Config returns the engine's configuration with defaults filled in.
func (e *Engine) Config() Config { return e.cfg }

// Store returns the cache store the engine persists to.
func (e *Engine) Store() *cache.Store { return e.store }

// LastProcessed returns the timestamp gate.
func (e *Engine) LastProcessed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) log() io.Writer {
	if e.logger != nil {
		return e.logger
	}
	return os.Stderr
}

func (e *Engine) warnf(format string, args ...any) {
	fmt.Fprintf(e.log(), "warning: "+format+"\n", args...)
}

func (e *Engine) errorf(format string, args ...any) {
	fmt.Fprintf(e.log(), "error: "+format+"\n", args...)
}

// RegisterTargetListener adds fn to the callbacks invoked with the new body
// id each time the player's target changes. Callbacks run on the goroutine
// that applied the change, outside the model lock.
func (e *Engine) RegisterTargetListener(fn func(bodyID int)) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// ApplyLine decodes a raw journal line and applies it. Malformed lines are
// logged and dropped. It reports whether the event passed the gate.
func (e *Engine) ApplyLine(line string) bool {
	ev, err := journal.Decode([]byte(line))
	if err != nil {
		e.warnf("%v", err)
		return false
	}
	return e.Apply(ev, ApplyFlags{})
}

// Apply applies one decoded event. It reports false when the timestamp gate
// short-circuited the event.
func (e *Engine) Apply(ev journal.Event, flags ApplyFlags) bool {
	var fx effects
	e.mu.Lock()
	applied := e.apply(ev, flags, &fx)
	if applied {
		e.resolvePending(&fx)
	}
	e.commit(&fx, flags)
	return applied
}

// ApplyStatus mirrors a status file snapshot into the player context: target,
// surface position, and fuel. It implements status.Sink. A destination in
// another system is not a local target. A BodyName the current system does
// not know yet is kept and resolved once an event adds that body.
func (e *Engine) ApplyStatus(s *status.Snapshot) {
	var fx effects
	e.mu.Lock()

	sys := e.player.System
	dest := s.Destination
	if dest != nil && dest.System != 0 && sys != nil && dest.System != sys.Address {
		dest = nil
	}
	switch {
	case dest != nil && dest.Body != nil:
		e.setTarget(&fx, *dest.Body)
		e.label = bodyLabel{id: *dest.Body, name: dest.Name}
	case s.BodyName != "":
		var b *model.Body
		if sys != nil {
			b, _ = sys.BodyByName(s.BodyName)
		}
		if b != nil {
			e.setTarget(&fx, b.ID)
		} else {
			e.pending = s.BodyName
		}
	}

	if s.HasPosition() {
		pos := &model.Position{
			Coordinates: surface.Coordinates{Latitude: *s.Latitude, Longitude: *s.Longitude},
			Heading:     *s.Heading,
			BodyName:    s.BodyName,
		}
		if s.PlanetRadius != nil {
			pos.PlanetRadius = *s.PlanetRadius
		} else if sys != nil {
			if b, ok := sys.BodyByName(s.BodyName); ok && b.Radius != nil {
				pos.PlanetRadius = *b.Radius
			}
		}
		e.player.Position = pos
	}

	if s.Fuel != nil {
		e.player.Ship.Fuel = model.FuelLevels{Main: s.Fuel.Main, Reservoir: s.Fuel.Reservoir}
	}

	e.commit(&fx, ApplyFlags{})
}

// SnapshotSystem returns a deep copy of the current system, or nil before
// any event has placed the player in one.
func (e *Engine) SnapshotSystem() *model.System {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player.System.Clone()
}

// SnapshotBodies returns deep copies of the current system's bodies keyed by
// body id. The map is empty, never nil, when there is no current system.
func (e *Engine) SnapshotBodies() map[int]*model.Body {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]*model.Body)
	if e.player.System == nil {
		return out
	}
	for id, b := range e.player.System.Bodies {
		out[id] = b.Clone()
	}
	return out
}

// SnapshotTarget returns the targeted body. When nothing has been scanned
// for it yet, the result is a stub carrying only its id and name. It returns
// nil when there is no target.
func (e *Engine) SnapshotTarget() *model.Body {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player.TargetID == nil {
		return nil
	}
	id := *e.player.TargetID
	var b *model.Body
	if e.player.System != nil {
		b = e.player.System.Bodies[id]
	}
	if b != nil && b.Type != "" {
		return b.Clone()
	}
	stub := model.NewBody(id)
	if b != nil {
		stub.Name = b.Name
	}
	if stub.Name == "" && e.label.id == id {
		stub.Name = e.label.name
	}
	return stub
}

// SnapshotPlayer returns a deep copy of the player context.
func (e *Engine) SnapshotPlayer() model.PlayerContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player.Clone()
}

// Course is the distance and direction from the player to a surface point.
type Course struct {
	DistanceKM float64
	Bearing    float64 // true course in degrees
	Relative   float64 // bearing relative to the player's heading
}

// CourseTo computes the course from pos to the point to. It returns
// ErrNoPosition when pos is nil or lacks a planet radius.
func CourseTo(pos *model.Position, to surface.Coordinates) (Course, error) {
	if pos == nil {
		return Course{}, ErrNoPosition
	}
	km, ok := surface.Distance(pos.PlanetRadius, &pos.Coordinates, &to)
	if !ok {
		return Course{}, ErrNoPosition
	}
	bearing := surface.Bearing(pos.Coordinates, to)
	return Course{
		DistanceKM: km,
		Bearing:    bearing,
		Relative:   surface.RelativeBearing(bearing, pos.Heading),
	}, nil
}

// Navigate returns the course from the player's current position to a point.
func (e *Engine) Navigate(to surface.Coordinates) (Course, error) {
	e.mu.Lock()
	var pos *model.Position
	if e.player.Position != nil {
		p := *e.player.Position
		pos = &p
	}
	e.mu.Unlock()
	return CourseTo(pos, to)
}

// system returns the in-memory system for addr, loading it from the cache on
// first reference. Callers hold mu.
func (e *Engine) system(addr int64) *model.System {
	if s, ok := e.systems[addr]; ok {
		return s
	}
	s, found, err := e.store.LoadSystem(addr)
	if err != nil {
		e.warnf("%v", err)
	}
	if !found || err != nil {
		s = model.NewSystem(addr, "")
	}
	e.systems[addr] = s
	return s
}

// enter makes addr the current system. Callers hold mu.
func (e *Engine) enter(addr int64) *model.System {
	s := e.system(addr)
	e.player.System = s
	return s
}

// effects are the side effects of one mutation, performed after the model
// lock is released.
type effects struct {
	gate     time.Time
	save     *model.System
	organic  *ledger.Organic
	codex    *ledger.Codex
	target   *int
	activity []telemetry.Event
}

// commit releases mu and performs fx. Callers hold mu.
func (e *Engine) commit(fx *effects, flags ApplyFlags) {
	e.persistMu.Lock()
	e.mu.Unlock()
	e.flush(fx, flags)
	e.persistMu.Unlock()

	if fx.target != nil && !flags.Silent {
		e.notify(*fx.target)
	}
}

func (e *Engine) flush(fx *effects, flags ApplyFlags) {
	if e.readOnly {
		return
	}
	// The system goes first so a crash never leaves the gate ahead of it.
	if fx.save != nil {
		if err := e.store.SaveSystem(fx.save); err != nil {
			e.errorf("%v", err)
		}
	}
	if !fx.gate.IsZero() {
		if err := e.store.SaveGate(fx.gate); err != nil {
			e.errorf("%v", err)
		}
	}
	if e.recorder != nil {
		ctx := context.Background()
		if fx.organic != nil {
			if err := e.recorder.RecordOrganic(ctx, *fx.organic); err != nil {
				e.errorf("%v", err)
			}
		}
		if fx.codex != nil {
			if err := e.recorder.RecordCodex(ctx, *fx.codex); err != nil {
				e.errorf("%v", err)
			}
		}
	}
	if flags.Silent {
		return
	}
	for _, evt := range fx.activity {
		if err := e.telemetry.Emit(evt); err != nil {
			e.warnf("%v", err)
		}
	}
}

func (e *Engine) notify(bodyID int) {
	e.listenersMu.Lock()
	listeners := make([]func(int), len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(bodyID)
	}
}
