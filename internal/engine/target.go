package engine

import (
	"time"

	"github.com/papapumpkin/parallax/internal/telemetry"
)

// bodyLabel pairs a body id with the name an event or the status file gave
// it, for targets that have not been scanned.
type bodyLabel struct {
	id   int
	name string
}

// resolvePending targets the body the status file named once the current
// system knows it. Callers hold mu.
func (e *Engine) resolvePending(fx *effects) {
	if e.pending == "" || e.player.System == nil {
		return
	}
	if b, ok := e.player.System.BodyByName(e.pending); ok {
		e.setTarget(fx, b.ID)
	}
}

// setTarget records a target change and drops any unresolved status body.
// Callers hold mu.
func (e *Engine) setTarget(fx *effects, bodyID int) {
	e.pending = ""
	if e.player.TargetID != nil && *e.player.TargetID == bodyID {
		return
	}
	id := bodyID
	e.player.TargetID = &id
	fx.target = &id

	evt := telemetry.Event{Timestamp: time.Now().UTC(), Kind: telemetry.KindTarget, Body: &id}
	if e.player.System != nil {
		evt.System = e.player.System.Address
	}
	fx.activity = append(fx.activity, evt)
}
