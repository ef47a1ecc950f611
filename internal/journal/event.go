package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event tags recognised by the decoder.
const (
	KindFSDJump           = "FSDJump"
	KindFSSDiscoveryScan  = "FSSDiscoveryScan"
	KindFSSAllBodiesFound = "FSSAllBodiesFound"
	KindScan              = "Scan"
	KindFSSBodySignals    = "FSSBodySignals"
	KindSAASignalsFound   = "SAASignalsFound"
	KindCodexEntry        = "CodexEntry"
	KindScanOrganic       = "ScanOrganic"
	KindLocation          = "Location"
	KindLoadout           = "Loadout"
	KindJetConeBoost      = "JetConeBoost"
	KindSynthesis         = "Synthesis"
)

// Signal type tags carried by FSSBodySignals and SAASignalsFound.
const (
	SignalBiological = "$SAA_SignalType_Biological;"
	SignalGeological = "$SAA_SignalType_Geological;"
)

// Codex sub-categories the dispatcher routes on.
const (
	SubCategoryGeology  = "$Codex_SubCategory_Geology_and_Anomalies;"
	SubCategoryOrganics = "$Codex_SubCategory_Organic_Structures;"
)

// ScanOrganic scan types.
const (
	ScanTypeLog     = "Log"
	ScanTypeSample  = "Sample"
	ScanTypeAnalyse = "Analyse"
)

// Event is one decoded journal record. Concrete types are pointers to the
// structs in this file; Unknown carries any unrecognised tag.
type Event interface {
	EventHeader() Header
}

// Header holds the fields common to every journal record.
type Header struct {
	Timestamp     time.Time `json:"-"`
	Event         string    `json:"event"`
	SystemAddress *int64    `json:"SystemAddress,omitempty"`
}

// EventHeader returns h. It is promoted to every event type.
func (h Header) EventHeader() Header { return h }

type stamper interface {
	stamp(time.Time)
}

func (h *Header) stamp(t time.Time) { h.Timestamp = t }

// Unknown is any event the dispatcher does not route.
type Unknown struct {
	Header
}

// FSDJump is a completed hyperspace jump.
type FSDJump struct {
	Header
	StarSystem string `json:"StarSystem"`
	Body       string `json:"Body"`
	BodyID     *int   `json:"BodyID"`
}

// FSSDiscoveryScan is the honk; BodyCount is the number of bodies in the system.
type FSSDiscoveryScan struct {
	Header
	SystemName string `json:"SystemName"`
	BodyCount  *int   `json:"BodyCount"`
}

// FSSAllBodiesFound fires when every body has been scanned.
type FSSAllBodiesFound struct {
	Header
	SystemName string `json:"SystemName"`
	Count      *int   `json:"Count"`
}

// Material is one entry of a body's surface composition.
type Material struct {
	Name    string  `json:"Name"`
	Percent float64 `json:"Percent"`
}

// RingInfo describes a ring as listed on its parent's scan.
type RingInfo struct {
	Name      string  `json:"Name"`
	RingClass string  `json:"RingClass"`
	MassMT    float64 `json:"MassMT"`
	InnerRad  float64 `json:"InnerRad"`
	OuterRad  float64 `json:"OuterRad"`
}

// Scan is a detailed scan of a star, planet, belt cluster, or ring.
type Scan struct {
	Header
	ScanType              string     `json:"ScanType"`
	BodyName              string     `json:"BodyName"`
	BodyID                *int       `json:"BodyID"`
	StarType              string     `json:"StarType"`
	PlanetClass           string     `json:"PlanetClass"`
	Radius                *float64   `json:"Radius"`
	DistanceFromArrivalLS *float64   `json:"DistanceFromArrivalLS"`
	Landable              bool       `json:"Landable"`
	Materials             []Material `json:"Materials"`
	Rings                 []RingInfo `json:"Rings"`
}

// Signal is a count of one signal type on a body.
type Signal struct {
	Type          string `json:"Type"`
	TypeLocalised string `json:"Type_Localised"`
	Count         int    `json:"Count"`
}

// FSSBodySignals reports signals found from orbit.
type FSSBodySignals struct {
	Header
	BodyName string   `json:"BodyName"`
	BodyID   *int     `json:"BodyID"`
	Signals  []Signal `json:"Signals"`
}

// GenusSignal names a genus detected by a surface mapping probe.
type GenusSignal struct {
	Genus          string `json:"Genus"`
	GenusLocalised string `json:"Genus_Localised"`
}

// SAASignalsFound reports signals after the surface has been mapped.
type SAASignalsFound struct {
	Header
	BodyName string        `json:"BodyName"`
	BodyID   *int          `json:"BodyID"`
	Signals  []Signal      `json:"Signals"`
	Genuses  []GenusSignal `json:"Genuses"`
}

// CodexEntry is a codex discovery.
type CodexEntry struct {
	Header
	EntryID              int64    `json:"EntryID"`
	Name                 string   `json:"Name"`
	NameLocalised        string   `json:"Name_Localised"`
	SubCategory          string   `json:"SubCategory"`
	SubCategoryLocalised string   `json:"SubCategory_Localised"`
	Category             string   `json:"Category"`
	System               string   `json:"System"`
	BodyID               *int     `json:"BodyID"`
	NearestDestination   string   `json:"NearestDestination"`
	IsNewEntry           bool     `json:"IsNewEntry"`
	Latitude             *float64 `json:"Latitude"`
	Longitude            *float64 `json:"Longitude"`
}

// IsLifeCloud reports whether the entry was logged near a life-cloud signal
// source rather than on a body surface.
func (c *CodexEntry) IsLifeCloud() bool {
	return strings.Contains(c.NearestDestination, "LifeCloud")
}

// ScanOrganic is one step of sampling a surface organism.
type ScanOrganic struct {
	Header
	ScanType         string `json:"ScanType"`
	Genus            string `json:"Genus"`
	GenusLocalised   string `json:"Genus_Localised"`
	Species          string `json:"Species"`
	SpeciesLocalised string `json:"Species_Localised"`
	Variant          string `json:"Variant"`
	VariantLocalised string `json:"Variant_Localised"`
	Body             *int   `json:"Body"`
}

// GenusName returns the raw codex name the genus id is derived from. The
// game writes the genus id itself in Genus; variant codes are only a
// fallback because not all of them canonicalise.
func (s *ScanOrganic) GenusName() string {
	switch {
	case s.Genus != "":
		return s.Genus
	case s.Variant != "":
		return s.Variant
	default:
		return s.Species
	}
}

// Location is written on login and after respawn or docking.
type Location struct {
	Header
	StarSystem string `json:"StarSystem"`
	Body       string `json:"Body"`
	BodyID     *int   `json:"BodyID"`
}

// FuelCapacity is the fuel layout of a ship.
type FuelCapacity struct {
	Main    float64 `json:"Main"`
	Reserve float64 `json:"Reserve"`
}

// Loadout describes the current ship.
type Loadout struct {
	Header
	Ship         string       `json:"Ship"`
	ShipID       int          `json:"ShipID"`
	ShipName     string       `json:"ShipName"`
	ShipIdent    string       `json:"ShipIdent"`
	FuelCapacity FuelCapacity `json:"FuelCapacity"`
}

// JetConeBoost records a neutron or white-dwarf supercharge.
type JetConeBoost struct {
	Header
	BoostValue float64 `json:"BoostValue"`
}

// Synthesis records an engineering synthesis; only FSD injections matter here.
type Synthesis struct {
	Header
	Name string `json:"Name"`
}

// Jump-range factors for each FSD injection grade.
var fsdInjection = map[string]float64{
	"FSD Basic":    1.25,
	"FSD Standard": 1.5,
	"FSD Premium":  2.0,
}

// FSDInjection returns the jump-range factor of the synthesis, if it is one.
func (s *Synthesis) FSDInjection() (float64, bool) {
	f, ok := fsdInjection[s.Name]
	return f, ok
}

// bodyEvent is implemented by events that must name a body to be routed.
type bodyEvent interface {
	requiredBody() *int
}

func (e *Scan) requiredBody() *int            { return e.BodyID }
func (e *FSSBodySignals) requiredBody() *int  { return e.BodyID }
func (e *SAASignalsFound) requiredBody() *int { return e.BodyID }
func (e *ScanOrganic) requiredBody() *int     { return e.Body }

type rawHeader struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
}

// Timestamp layouts accepted in journal records.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a journal timestamp as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Decode parses one journal line into its event type.
func Decode(line []byte) (Event, error) {
	var raw rawHeader
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("journal: %w: %v", ErrMalformedEvent, err)
	}
	if raw.Event == "" {
		return nil, fmt.Errorf("journal: %w: missing event tag", ErrMalformedEvent)
	}
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("journal: %w: %s: bad timestamp %q", ErrMalformedEvent, raw.Event, raw.Timestamp)
	}

	var ev Event
	switch raw.Event {
	case KindFSDJump:
		ev = &FSDJump{}
	case KindFSSDiscoveryScan:
		ev = &FSSDiscoveryScan{}
	case KindFSSAllBodiesFound:
		ev = &FSSAllBodiesFound{}
	case KindScan:
		ev = &Scan{}
	case KindFSSBodySignals:
		ev = &FSSBodySignals{}
	case KindSAASignalsFound:
		ev = &SAASignalsFound{}
	case KindCodexEntry:
		ev = &CodexEntry{}
	case KindScanOrganic:
		ev = &ScanOrganic{}
	case KindLocation:
		ev = &Location{}
	case KindLoadout:
		ev = &Loadout{}
	case KindJetConeBoost:
		ev = &JetConeBoost{}
	case KindSynthesis:
		ev = &Synthesis{}
	default:
		ev = &Unknown{}
	}
	if err := json.Unmarshal(line, ev); err != nil {
		return nil, fmt.Errorf("journal: %w: %s: %v", ErrMalformedEvent, raw.Event, err)
	}
	if be, ok := ev.(bodyEvent); ok && be.requiredBody() == nil {
		return nil, fmt.Errorf("journal: %w: %s: missing body id", ErrMalformedEvent, raw.Event)
	}
	ev.(stamper).stamp(ts)
	return ev, nil
}
