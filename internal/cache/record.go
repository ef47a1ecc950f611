package cache

import (
	"strconv"
	"time"

	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/surface"
)

// systemRecord is the on-disk form of a System. Map keys are decimal body ids
// because TOML table keys are strings.
type systemRecord struct {
	Version     int                   `toml:"version"`
	Address     int64                 `toml:"system_address"`
	Name        string                `toml:"system_name,omitempty"`
	TotalBodies *int                  `toml:"total_bodies,omitempty"`
	JustJumped  bool                  `toml:"just_jumped,omitempty"`
	Bodies      map[string]bodyRecord `toml:"bodies,omitempty"`
}

type bodyRecord struct {
	ID                  int                    `toml:"body_id"`
	Name                string                 `toml:"body_name,omitempty"`
	Type                string                 `toml:"body_type,omitempty"`
	Radius              *float64               `toml:"radius,omitempty"`
	DistanceFromArrival *float64               `toml:"distance_from_arrival,omitempty"`
	Landable            bool                   `toml:"landable,omitempty"`
	Scoopable           bool                   `toml:"scoopable,omitempty"`
	BioSignals          int                    `toml:"biosignals_count,omitempty"`
	GeoSignals          int                    `toml:"geosignals_count,omitempty"`
	Materials           map[string]float64     `toml:"materials,omitempty"`
	BioFound            map[string]genusRecord `toml:"bio_found,omitempty"`
	GeoFound            map[string]codexRecord `toml:"geo_found,omitempty"`
	Rings               map[string]ringRecord  `toml:"rings,omitempty"`
}

type genusRecord struct {
	ID           string               `toml:"genus_id"`
	Name         string               `toml:"genus_name,omitempty"`
	Species      string               `toml:"species_name,omitempty"`
	Variant      string               `toml:"variant_name,omitempty"`
	ScannedCount int                  `toml:"scanned_count"`
	MinDistance  int                  `toml:"min_distance,omitempty"`
	PosFirst     *surface.Coordinates `toml:"pos_first,omitempty"`
	PosSecond    *surface.Coordinates `toml:"pos_second,omitempty"`
}

type codexRecord struct {
	ID     string `toml:"codex_id"`
	Name   string `toml:"name,omitempty"`
	IsNew  bool   `toml:"is_new,omitempty"`
	BodyID int    `toml:"body_id"`
}

type ringRecord struct {
	ID          string  `toml:"ring_id"`
	Name        string  `toml:"ring_name,omitempty"`
	Class       string  `toml:"ring_class,omitempty"`
	MassMT      float64 `toml:"mass_mt,omitempty"`
	InnerRadius float64 `toml:"inner_radius,omitempty"`
	OuterRadius float64 `toml:"outer_radius,omitempty"`
}

type gateRecord struct {
	LastProcessed time.Time `toml:"last_processed"`
}

const recordVersion = 1

func toRecord(s *model.System) systemRecord {
	rec := systemRecord{
		Version:     recordVersion,
		Address:     s.Address,
		Name:        s.Name,
		TotalBodies: s.TotalBodies,
		JustJumped:  s.JustJumped,
	}
	if len(s.Bodies) > 0 {
		rec.Bodies = make(map[string]bodyRecord, len(s.Bodies))
	}
	for id, b := range s.Bodies {
		br := bodyRecord{
			ID:                  b.ID,
			Name:                b.Name,
			Type:                b.Type,
			Radius:              b.Radius,
			DistanceFromArrival: b.DistanceFromArrival,
			Landable:            b.Landable,
			Scoopable:           b.Scoopable,
			BioSignals:          b.BioSignals,
			GeoSignals:          b.GeoSignals,
			Materials:           b.Materials,
		}
		if len(b.BioFound) > 0 {
			br.BioFound = make(map[string]genusRecord, len(b.BioFound))
			for k, g := range b.BioFound {
				br.BioFound[k] = genusRecord{
					ID:           g.ID,
					Name:         g.Name,
					Species:      g.Species,
					Variant:      g.Variant,
					ScannedCount: g.ScannedCount,
					MinDistance:  g.MinDistance,
					PosFirst:     g.PosFirst,
					PosSecond:    g.PosSecond,
				}
			}
		}
		if len(b.GeoFound) > 0 {
			br.GeoFound = make(map[string]codexRecord, len(b.GeoFound))
			for k, e := range b.GeoFound {
				br.GeoFound[k] = codexRecord{ID: e.ID, Name: e.Name, IsNew: e.IsNew, BodyID: e.BodyID}
			}
		}
		if len(b.Rings) > 0 {
			br.Rings = make(map[string]ringRecord, len(b.Rings))
			for k, r := range b.Rings {
				br.Rings[k] = ringRecord{
					ID:          r.ID,
					Name:        r.Name,
					Class:       r.Class,
					MassMT:      r.MassMT,
					InnerRadius: r.InnerRadius,
					OuterRadius: r.OuterRadius,
				}
			}
		}
		rec.Bodies[strconv.Itoa(id)] = br
	}
	return rec
}

// fromRecord is the only path from the serialized form back into the model.
// Entries whose body key is not an integer are dropped.
func fromRecord(rec systemRecord) *model.System {
	s := model.NewSystem(rec.Address, rec.Name)
	s.TotalBodies = rec.TotalBodies
	s.JustJumped = rec.JustJumped
	for key, br := range rec.Bodies {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		b := model.NewBody(id)
		b.Name = br.Name
		b.Type = br.Type
		b.Radius = br.Radius
		b.DistanceFromArrival = br.DistanceFromArrival
		b.Landable = br.Landable
		b.Scoopable = br.Scoopable
		b.BioSignals = br.BioSignals
		b.GeoSignals = br.GeoSignals
		b.Materials = br.Materials
		for k, g := range br.BioFound {
			minDist := g.MinDistance
			if minDist == 0 {
				minDist = model.MinDistance(g.ID)
			}
			b.BioFound[k] = &model.Genus{
				ID:           g.ID,
				Name:         g.Name,
				Species:      g.Species,
				Variant:      g.Variant,
				ScannedCount: g.ScannedCount,
				MinDistance:  minDist,
				PosFirst:     g.PosFirst,
				PosSecond:    g.PosSecond,
			}
		}
		for k, e := range br.GeoFound {
			b.GeoFound[k] = &model.CodexEntry{ID: e.ID, Name: e.Name, IsNew: e.IsNew, BodyID: e.BodyID}
		}
		for k, r := range br.Rings {
			b.Rings[k] = &model.Ring{
				ID:          r.ID,
				Name:        r.Name,
				Class:       r.Class,
				MassMT:      r.MassMT,
				InnerRadius: r.InnerRadius,
				OuterRadius: r.OuterRadius,
			}
		}
		s.Bodies[id] = b
	}
	return s
}
