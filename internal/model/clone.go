package model

import "github.com/papapumpkin/parallax/internal/surface"

// Clone returns a deep copy of the system.
func (s *System) Clone() *System {
	if s == nil {
		return nil
	}
	c := &System{
		Address:     s.Address,
		Name:        s.Name,
		TotalBodies: cloneInt(s.TotalBodies),
		JustJumped:  s.JustJumped,
		Bodies:      make(map[int]*Body, len(s.Bodies)),
	}
	for id, b := range s.Bodies {
		c.Bodies[id] = b.Clone()
	}
	return c
}

// Clone returns a deep copy of the body.
func (b *Body) Clone() *Body {
	if b == nil {
		return nil
	}
	c := *b
	c.Radius = cloneFloat(b.Radius)
	c.DistanceFromArrival = cloneFloat(b.DistanceFromArrival)
	if b.Materials != nil {
		c.Materials = make(map[string]float64, len(b.Materials))
		for k, v := range b.Materials {
			c.Materials[k] = v
		}
	}
	c.BioFound = make(map[string]*Genus, len(b.BioFound))
	for k, g := range b.BioFound {
		c.BioFound[k] = g.Clone()
	}
	c.GeoFound = make(map[string]*CodexEntry, len(b.GeoFound))
	for k, e := range b.GeoFound {
		ce := *e
		c.GeoFound[k] = &ce
	}
	c.Rings = make(map[string]*Ring, len(b.Rings))
	for k, r := range b.Rings {
		rc := *r
		c.Rings[k] = &rc
	}
	return &c
}

// Clone returns a deep copy of the genus.
func (g *Genus) Clone() *Genus {
	if g == nil {
		return nil
	}
	c := *g
	c.PosFirst = cloneCoords(g.PosFirst)
	c.PosSecond = cloneCoords(g.PosSecond)
	return &c
}

// Clone returns a deep copy of the player context.
func (p PlayerContext) Clone() PlayerContext {
	c := p
	c.System = p.System.Clone()
	c.TargetID = cloneInt(p.TargetID)
	if p.Position != nil {
		pos := *p.Position
		c.Position = &pos
	}
	return c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneCoords(v *surface.Coordinates) *surface.Coordinates {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
