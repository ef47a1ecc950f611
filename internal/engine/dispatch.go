package engine

import (
	"strings"

	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/ledger"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/surface"
	"github.com/papapumpkin/parallax/internal/telemetry"
)

// apply routes one event. Callers hold mu.
func (e *Engine) apply(ev journal.Event, flags ApplyFlags, fx *effects) bool {
	h := ev.EventHeader()
	_, unknown := ev.(*journal.Unknown)

	if !flags.SkipGate {
		// Equal timestamps short-circuit without advancing the gate.
		if !h.Timestamp.After(e.last) {
			if h.SystemAddress != nil && !unknown {
				e.enter(*h.SystemAddress)
			}
			return false
		}
		e.last = h.Timestamp
		fx.gate = h.Timestamp
	}

	if jump, ok := ev.(*journal.FSDJump); ok {
		e.jump(jump, fx)
		return true
	}

	// Unrouted events may name other systems (jump targets, route plots), so
	// only routed ones move the player.
	if h.SystemAddress != nil && !unknown {
		e.enter(*h.SystemAddress)
	}
	sys := e.player.System

	dirty := false
	if sys != nil && sys.JustJumped {
		sys.JustJumped = false
		dirty = true
	}

	switch ev := ev.(type) {
	case *journal.FSSDiscoveryScan:
		dirty = e.bodyCount(sys, ev.SystemName, ev.BodyCount, h, fx) || dirty
	case *journal.FSSAllBodiesFound:
		dirty = e.bodyCount(sys, ev.SystemName, ev.Count, h, fx) || dirty
	case *journal.Scan:
		dirty = e.scan(sys, ev, fx) || dirty
	case *journal.FSSBodySignals:
		dirty = e.signals(sys, h, ev.BodyName, *ev.BodyID, ev.Signals, nil, fx) || dirty
	case *journal.SAASignalsFound:
		dirty = e.signals(sys, h, ev.BodyName, *ev.BodyID, ev.Signals, ev.Genuses, fx) || dirty
	case *journal.CodexEntry:
		dirty = e.codex(sys, ev, fx) || dirty
	case *journal.ScanOrganic:
		dirty = e.scanOrganic(sys, ev, fx) || dirty
	case *journal.Location:
		dirty = e.location(sys, ev, fx) || dirty
	case *journal.Loadout:
		e.loadout(ev, fx)
	case *journal.JetConeBoost:
		e.player.Ship.JetConeBoost = ev.BoostValue
		fx.activity = append(fx.activity, shipEvent(h, "jet_cone_boost", ev.BoostValue))
	case *journal.Synthesis:
		if f, ok := ev.FSDInjection(); ok {
			e.player.Ship.FSDInjection = f
			fx.activity = append(fx.activity, shipEvent(h, "fsd_injection", f))
		}
	}

	if dirty && sys != nil {
		fx.save = sys.Clone()
	}
	return true
}

// currentSystem returns sys, logging when an event that needs one arrives
// before the player is anywhere.
func (e *Engine) currentSystem(sys *model.System, kind string) (*model.System, bool) {
	if sys == nil {
		e.warnf("%s: no current system; event dropped", kind)
		return nil, false
	}
	return sys, true
}

func (e *Engine) jump(ev *journal.FSDJump, fx *effects) {
	if ev.SystemAddress == nil {
		e.warnf("%s: missing SystemAddress; event dropped", journal.KindFSDJump)
		return
	}
	sys := e.enter(*ev.SystemAddress)
	if ev.StarSystem != "" {
		sys.Name = ev.StarSystem
	}
	sys.JustJumped = true
	sys.TotalBodies = nil

	// Listeners are not told about the cleared target; the next Location or
	// status update names a new one.
	e.player.TargetID = nil
	e.player.Position = nil
	e.label = bodyLabel{}
	e.pending = ""
	e.player.Ship.JetConeBoost = 1
	e.player.Ship.FSDInjection = 1

	fx.save = sys.Clone()
	fx.activity = append(fx.activity, telemetry.Event{
		Timestamp: ev.Timestamp,
		Kind:      telemetry.KindJump,
		System:    sys.Address,
		Name:      sys.Name,
	})
}

func (e *Engine) bodyCount(sys *model.System, name string, count *int, h journal.Header, fx *effects) bool {
	sys, ok := e.currentSystem(sys, h.Event)
	if !ok || count == nil {
		return false
	}
	n := *count
	sys.TotalBodies = &n
	if sys.Name == "" {
		sys.Name = name
	}
	fx.activity = append(fx.activity, telemetry.Event{
		Timestamp: h.Timestamp,
		Kind:      telemetry.KindBodyCount,
		System:    sys.Address,
		Name:      sys.Name,
		Data:      map[string]int{"total_bodies": n},
	})
	return true
}

func (e *Engine) scan(sys *model.System, ev *journal.Scan, fx *effects) bool {
	sys, ok := e.currentSystem(sys, ev.Event)
	if !ok || model.IsRingName(ev.BodyName) {
		return false
	}
	b := sys.Body(*ev.BodyID)
	if ev.BodyName != "" {
		b.Name = ev.BodyName
	}
	switch {
	case strings.Contains(ev.BodyName, model.BeltCluster):
		b.Type = model.BeltCluster
	case ev.StarType != "":
		b.Type = ev.StarType
	case ev.PlanetClass != "":
		b.Type = ev.PlanetClass
	}
	if ev.Radius != nil {
		r := *ev.Radius
		b.Radius = &r
	}
	if ev.DistanceFromArrivalLS != nil {
		d := *ev.DistanceFromArrivalLS
		b.DistanceFromArrival = &d
	}
	b.Landable = b.Landable || ev.Landable
	b.Scoopable = model.IsScoopable(b.Type)
	if len(ev.Materials) > 0 {
		b.Materials = make(map[string]float64, len(ev.Materials))
		for _, m := range ev.Materials {
			b.Materials[m.Name] = m.Percent
		}
	}
	for _, r := range ev.Rings {
		b.Rings[r.Name] = &model.Ring{
			ID:          r.Name,
			Name:        r.Name,
			Class:       r.RingClass,
			MassMT:      r.MassMT,
			InnerRadius: r.InnerRad,
			OuterRadius: r.OuterRad,
		}
	}

	fx.activity = append(fx.activity, bodyEvent(ev.Header, telemetry.KindScan, sys, b))
	return true
}

func (e *Engine) signals(sys *model.System, h journal.Header, bodyName string, bodyID int, signals []journal.Signal, genuses []journal.GenusSignal, fx *effects) bool {
	sys, ok := e.currentSystem(sys, h.Event)
	if !ok || model.IsRingName(bodyName) {
		return false
	}
	b := sys.Body(bodyID)
	if bodyName != "" {
		b.Name = bodyName
	}
	for _, s := range signals {
		switch s.Type {
		case journal.SignalBiological:
			b.BioSignals = s.Count
		case journal.SignalGeological:
			b.GeoSignals = s.Count
		}
	}
	for _, gs := range genuses {
		g := genus(b, model.CanonicalGenusID(gs.Genus))
		if g.Name == "" {
			g.Name = gs.GenusLocalised
		}
	}

	fx.activity = append(fx.activity, bodyEvent(h, telemetry.KindSignals, sys, b))
	return true
}

// genus returns the body's entry for id, creating it with the default sample
// distance if needed.
func genus(b *model.Body, id string) *model.Genus {
	g, ok := b.BioFound[id]
	if !ok {
		g = &model.Genus{ID: id}
		b.BioFound[id] = g
	}
	if g.MinDistance == 0 {
		g.MinDistance = model.MinDistance(id)
	}
	return g
}

func (e *Engine) codex(sys *model.System, ev *journal.CodexEntry, fx *effects) bool {
	sys, ok := e.currentSystem(sys, ev.Event)
	if !ok {
		return false
	}
	if ev.BodyID == nil {
		// Codex entries logged in space have nothing to attach to.
		return false
	}

	switch {
	case ev.SubCategory == journal.SubCategoryGeology && !ev.IsLifeCloud():
		b := sys.Body(*ev.BodyID)
		c, ok := b.GeoFound[ev.Name]
		if !ok {
			c = &model.CodexEntry{ID: ev.Name}
			b.GeoFound[ev.Name] = c
		}
		if ev.NameLocalised != "" {
			c.Name = ev.NameLocalised
		}
		c.IsNew = c.IsNew || ev.IsNewEntry
		c.BodyID = b.ID
		fx.codex = &ledger.Codex{
			SystemAddress: sys.Address,
			BodyID:        b.ID,
			CodexID:       c.ID,
			Name:          c.Name,
			Category:      "geology",
			IsNew:         c.IsNew,
			UpdatedAt:     ev.Timestamp,
		}
		fx.activity = append(fx.activity, bodyEvent(ev.Header, telemetry.KindCodex, sys, b))
		return true

	case ev.SubCategory == journal.SubCategoryOrganics:
		b := sys.Body(*ev.BodyID)
		g := genus(b, model.CanonicalGenusID(ev.Name))
		if g.Variant == "" {
			g.Variant = ev.NameLocalised
		}
		fx.codex = &ledger.Codex{
			SystemAddress: sys.Address,
			BodyID:        b.ID,
			CodexID:       ev.Name,
			Name:          ev.NameLocalised,
			Category:      "organic",
			IsNew:         ev.IsNewEntry,
			UpdatedAt:     ev.Timestamp,
		}
		fx.activity = append(fx.activity, bodyEvent(ev.Header, telemetry.KindCodex, sys, b))
		return true
	}
	return false
}

func (e *Engine) scanOrganic(sys *model.System, ev *journal.ScanOrganic, fx *effects) bool {
	sys, ok := e.currentSystem(sys, ev.Event)
	if !ok {
		return false
	}
	b := sys.Body(*ev.Body)
	g := genus(b, model.CanonicalGenusID(ev.GenusName()))

	prev := g.ScannedCount
	next := prev + 1
	if ev.ScanType == journal.ScanTypeAnalyse {
		next = model.MaxScanCount
	}
	if next > model.MaxScanCount {
		next = model.MaxScanCount
	}
	g.ScannedCount = next

	switch {
	case next == model.MaxScanCount:
		g.PosFirst = nil
		g.PosSecond = nil
	case prev == 0 && next == 1:
		g.PosFirst = e.samplePosition()
	case prev == 1 && next == 2:
		g.PosSecond = e.samplePosition()
	}

	if g.Name == "" {
		g.Name = ev.GenusLocalised
	}
	if g.Species == "" {
		g.Species = ev.SpeciesLocalised
	}
	if g.Variant == "" {
		g.Variant = ev.VariantLocalised
	}

	fx.organic = &ledger.Organic{
		SystemAddress: sys.Address,
		BodyID:        b.ID,
		GenusID:       g.ID,
		Genus:         g.Name,
		Species:       g.Species,
		Variant:       g.Variant,
		ScannedCount:  g.ScannedCount,
		UpdatedAt:     ev.Timestamp,
	}
	evt := bodyEvent(ev.Header, telemetry.KindOrganic, sys, b)
	evt.Data = map[string]any{"genus": g.ID, "scanned_count": g.ScannedCount}
	fx.activity = append(fx.activity, evt)
	return true
}

// samplePosition returns a copy of the player's coordinates, or nil when the
// status file has not reported any. Callers hold mu.
func (e *Engine) samplePosition() *surface.Coordinates {
	if e.player.Position == nil {
		return nil
	}
	c := e.player.Position.Coordinates
	return &c
}

func (e *Engine) location(sys *model.System, ev *journal.Location, fx *effects) bool {
	if ev.BodyID != nil {
		e.setTarget(fx, *ev.BodyID)
		e.label = bodyLabel{id: *ev.BodyID, name: ev.Body}
	}
	if sys == nil {
		return false
	}
	dirty := false
	if sys.Name == "" && ev.StarSystem != "" {
		sys.Name = ev.StarSystem
		dirty = true
	}
	fx.activity = append(fx.activity, telemetry.Event{
		Timestamp: ev.Timestamp,
		Kind:      telemetry.KindLocation,
		System:    sys.Address,
		Body:      ev.BodyID,
		Name:      ev.Body,
	})
	return dirty
}

func (e *Engine) loadout(ev *journal.Loadout, fx *effects) {
	ship := &e.player.Ship
	ship.Type = ev.Ship
	ship.ID = ev.ShipID
	ship.Name = ev.ShipName
	ship.Ident = ev.ShipIdent
	ship.FuelCap = model.FuelLevels{Main: ev.FuelCapacity.Main, Reservoir: ev.FuelCapacity.Reserve}
	fx.activity = append(fx.activity, shipEvent(ev.Header, "loadout", ev.Ship))
}

func bodyEvent(h journal.Header, kind string, sys *model.System, b *model.Body) telemetry.Event {
	id := b.ID
	return telemetry.Event{
		Timestamp: h.Timestamp,
		Kind:      kind,
		System:    sys.Address,
		Body:      &id,
		Name:      b.Name,
	}
}

func shipEvent(h journal.Header, field string, value any) telemetry.Event {
	return telemetry.Event{
		Timestamp: h.Timestamp,
		Kind:      telemetry.KindShip,
		Data:      map[string]any{field: value},
	}
}
