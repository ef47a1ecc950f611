// Package model defines the in-memory world model: the star system the
// player is in, its bodies, and what has been discovered on them.
package model

import (
	"strings"

	"github.com/papapumpkin/parallax/internal/surface"
)

// BeltCluster is the body type assigned to asteroid belt clusters.
const BeltCluster = "Belt Cluster"

// MaxScanCount is the terminal value of Genus.ScannedCount.
const MaxScanCount = 3

// System is a star system identified by its address.
type System struct {
	Address     int64         `json:"address" yaml:"address"`
	Name        string        `json:"name" yaml:"name"`
	TotalBodies *int          `json:"total_bodies,omitempty" yaml:"total_bodies,omitempty"` // nil until a discovery scan reports it
	JustJumped  bool          `json:"just_jumped" yaml:"just_jumped"`
	Bodies      map[int]*Body `json:"bodies" yaml:"bodies"`
}

// NewSystem returns an empty system.
func NewSystem(address int64, name string) *System {
	return &System{
		Address: address,
		Name:    name,
		Bodies:  make(map[int]*Body),
	}
}

// Body returns the body with the given id, creating it if needed.
func (s *System) Body(id int) *Body {
	if b, ok := s.Bodies[id]; ok {
		return b
	}
	b := NewBody(id)
	s.Bodies[id] = b
	return b
}

// BodyByName finds a body by its display name.
func (s *System) BodyByName(name string) (*Body, bool) {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Body is a star, planet, or belt cluster within a system.
type Body struct {
	ID                  int                    `json:"id" yaml:"id"`
	Name                string                 `json:"name" yaml:"name"`
	Type                string                 `json:"type" yaml:"type"`                                                       // star class, planet class, or BeltCluster
	Radius              *float64               `json:"radius,omitempty" yaml:"radius,omitempty"`                               // metres
	DistanceFromArrival *float64               `json:"distance_from_arrival,omitempty" yaml:"distance_from_arrival,omitempty"` // light-seconds
	Landable            bool                   `json:"landable" yaml:"landable"`
	Scoopable           bool                   `json:"scoopable" yaml:"scoopable"`
	BioSignals          int                    `json:"bio_signals" yaml:"bio_signals"`
	GeoSignals          int                    `json:"geo_signals" yaml:"geo_signals"`
	Materials           map[string]float64     `json:"materials,omitempty" yaml:"materials,omitempty"`                         // percent by mineral; absent when unknown
	BioFound            map[string]*Genus      `json:"bio_found" yaml:"bio_found"`                                             // keyed by canonical genus id
	GeoFound            map[string]*CodexEntry `json:"geo_found" yaml:"geo_found"`                                             // keyed by codex id
	Rings               map[string]*Ring       `json:"rings" yaml:"rings"`                                                     // keyed by ring name
}

// NewBody returns a body with its maps allocated.
func NewBody(id int) *Body {
	return &Body{
		ID:       id,
		BioFound: make(map[string]*Genus),
		GeoFound: make(map[string]*CodexEntry),
		Rings:    make(map[string]*Ring),
	}
}

// IsRingName reports whether name refers to a planetary ring rather than a body.
func IsRingName(name string) bool {
	return strings.HasSuffix(name, "Ring")
}

// Genus tracks sampling progress for one genus on one body.
type Genus struct {
	ID           string               `json:"id" yaml:"id"`
	Name         string               `json:"name" yaml:"name"`                                 // localised genus name
	Species      string               `json:"species" yaml:"species"`                           // localised species name
	Variant      string               `json:"variant" yaml:"variant"`                           // localised variant name
	ScannedCount int                  `json:"scanned_count" yaml:"scanned_count"`
	MinDistance  int                  `json:"min_distance" yaml:"min_distance"`                 // metres between samples
	PosFirst     *surface.Coordinates `json:"pos_first,omitempty" yaml:"pos_first,omitempty"`
	PosSecond    *surface.Coordinates `json:"pos_second,omitempty" yaml:"pos_second,omitempty"`
}

// Complete reports whether analysis has finished.
func (g *Genus) Complete() bool { return g.ScannedCount >= MaxScanCount }

// CodexEntry is a geological (or other non-biological) codex discovery.
type CodexEntry struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	IsNew  bool   `json:"is_new" yaml:"is_new"`
	BodyID int    `json:"body_id" yaml:"body_id"`
}

// Ring is a planetary ring as described by the parent body's scan.
type Ring struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Class       string  `json:"class" yaml:"class"`
	MassMT      float64 `json:"mass_mt" yaml:"mass_mt"`
	InnerRadius float64 `json:"inner_radius" yaml:"inner_radius"`
	OuterRadius float64 `json:"outer_radius" yaml:"outer_radius"`
}

// ShipStatus describes the current ship. The boost factors multiply jump
// range and reset to 1 after a hyperspace jump.
type ShipStatus struct {
	Type    string     `json:"type" yaml:"type"`
	ID      int        `json:"id" yaml:"id"`
	Name    string     `json:"name" yaml:"name"`
	Ident   string     `json:"ident" yaml:"ident"`
	FuelCap FuelLevels `json:"fuel_cap" yaml:"fuel_cap"` // capacity from the loadout
	Fuel    FuelLevels `json:"fuel" yaml:"fuel"`         // current levels from the status file

	JetConeBoost float64 `json:"jet_cone_boost" yaml:"jet_cone_boost"`
	FSDInjection float64 `json:"fsd_injection" yaml:"fsd_injection"`
}

// FuelLevels pairs the main tank with the reservoir, in tonnes.
type FuelLevels struct {
	Main      float64 `json:"main" yaml:"main"`
	Reservoir float64 `json:"reservoir" yaml:"reservoir"`
}

// DefaultShipStatus returns a ship with neutral boost factors.
func DefaultShipStatus() ShipStatus {
	return ShipStatus{JetConeBoost: 1, FSDInjection: 1}
}

// Position is the player's location on a planet surface.
type Position struct {
	surface.Coordinates `yaml:",inline"`

	Heading      float64 `json:"heading" yaml:"heading"`
	PlanetRadius float64 `json:"planet_radius" yaml:"planet_radius"` // metres; zero when the status file omits it
	BodyName     string  `json:"body_name" yaml:"body_name"`
}

// PlayerContext is everything known about the player right now.
type PlayerContext struct {
	System   *System    `json:"system,omitempty" yaml:"system,omitempty"`
	TargetID *int       `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Position *Position  `json:"position,omitempty" yaml:"position,omitempty"`
	Ship     ShipStatus `json:"ship" yaml:"ship"`
}
