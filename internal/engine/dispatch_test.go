package engine

import (
	"sync"
	"testing"

	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/model"
)

func TestScan_LandableRockyBody(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e, jline(t, 1, "Scan", map[string]any{
		"SystemAddress": 42,
		"BodyName":      "Alpha 1",
		"BodyID":        5,
		"PlanetClass":   "Rocky body",
		"Landable":      true,
		"Radius":        3.4e6,
		"Materials": []map[string]any{
			{"Name": "iron", "Percent": 23.4},
			{"Name": "nickel", "Percent": 17.8},
		},
	}))

	sys := e.SnapshotSystem()
	if sys == nil || sys.Address != 42 {
		t.Fatalf("current system = %+v, want 42", sys)
	}
	b := body(t, e, 5)
	if !b.Landable || b.Scoopable {
		t.Errorf("landable=%v scoopable=%v, want true/false", b.Landable, b.Scoopable)
	}
	if b.Radius == nil || *b.Radius != 3.4e6 {
		t.Errorf("Radius = %v, want 3.4e6", b.Radius)
	}
	if len(b.Materials) != 2 || b.Materials["iron"] != 23.4 || b.Materials["nickel"] != 17.8 {
		t.Errorf("Materials = %v", b.Materials)
	}
	if b.Type != "Rocky body" || b.Name != "Alpha 1" {
		t.Errorf("type/name = %q/%q", b.Type, b.Name)
	}
}

func TestScan_Scoopable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		starType string
		want     bool
	}{
		{"K", true}, {"G", true}, {"B", true}, {"F", true}, {"O", true}, {"A", true}, {"M", true},
		{"L", false}, {"T", false}, {"Y", false}, {"DA", false}, {"N", false}, {"H", false},
	}
	for _, tt := range tests {
		t.Run(tt.starType, func(t *testing.T) {
			t.Parallel()
			e, _ := newTestEngine(t)
			mustApply(t, e, jline(t, 1, "Scan", map[string]any{
				"SystemAddress": 42, "BodyName": "Alpha", "BodyID": 0, "StarType": tt.starType, "Radius": 7e8,
			}))
			b := body(t, e, 0)
			if b.Scoopable != tt.want {
				t.Errorf("Scoopable = %v, want %v", b.Scoopable, tt.want)
			}
			if b.Type != tt.starType {
				t.Errorf("Type = %q, want %q", b.Type, tt.starType)
			}
		})
	}
}

func TestScan_StickyFieldsAndBeltClusters(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e,
		jline(t, 1, "Scan", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5, "PlanetClass": "Rocky body", "Landable": true,
			"Materials": []map[string]any{{"Name": "iron", "Percent": 23.4}},
		}),
		// A later scan without landable or materials keeps both.
		jline(t, 2, "Scan", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5, "PlanetClass": "Rocky body",
		}),
		jline(t, 3, "Scan", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha A Belt Cluster 1", "BodyID": 9,
		}),
	)
	b := body(t, e, 5)
	if !b.Landable {
		t.Error("Landable regressed to false")
	}
	if b.Materials["iron"] != 23.4 {
		t.Errorf("Materials = %v, want kept", b.Materials)
	}
	if got := body(t, e, 9).Type; got != model.BeltCluster {
		t.Errorf("belt cluster type = %q, want %q", got, model.BeltCluster)
	}
}

func TestScan_RingsSkippedAndRecordedOnParent(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e,
		jline(t, 1, "Scan", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha 2", "BodyID": 6, "PlanetClass": "Icy body",
			"Rings": []map[string]any{{"Name": "Alpha 2 A Ring", "RingClass": "eRingClass_Icy", "MassMT": 1.5e9, "InnerRad": 7e7, "OuterRad": 9e7}},
		}),
		jline(t, 2, "Scan", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha 2 A Ring", "BodyID": 7,
		}),
		jline(t, 3, "FSSBodySignals", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha 2 A Ring", "BodyID": 7,
			"Signals": []map[string]any{{"Type": "$SAA_SignalType_Geological;", "Count": 1}},
		}),
	)
	bodies := e.SnapshotBodies()
	if _, ok := bodies[7]; ok {
		t.Error("ring stored as an ordinary body")
	}
	r := bodies[6].Rings["Alpha 2 A Ring"]
	if r == nil || r.Class != "eRingClass_Icy" || r.MassMT != 1.5e9 || r.InnerRadius != 7e7 || r.OuterRadius != 9e7 {
		t.Errorf("ring = %+v", r)
	}
}

func TestFSSBodySignals_Counts(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e, jline(t, 1, "FSSBodySignals", map[string]any{
		"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5,
		"Signals": []map[string]any{
			{"Type": "$SAA_SignalType_Biological;", "Type_Localised": "Biological", "Count": 2},
			{"Type": "$SAA_SignalType_Geological;", "Type_Localised": "Geological", "Count": 3},
			{"Type": "$SAA_SignalType_Human;", "Count": 9},
		},
	}))
	b := body(t, e, 5)
	if b.BioSignals != 2 || b.GeoSignals != 3 {
		t.Errorf("bio=%d geo=%d, want 2/3", b.BioSignals, b.GeoSignals)
	}
}

func TestSAASignalsFound_CreatesGenera(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	const bact = "$Codex_Ent_Bacterial_Genus_Name;"
	saa := jline(t, 3, "SAASignalsFound", map[string]any{
		"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5,
		"Signals": []map[string]any{{"Type": "$SAA_SignalType_Biological;", "Count": 2}},
		"Genuses": []map[string]any{
			{"Genus": bact, "Genus_Localised": "Bacterium"},
			{"Genus": "$Codex_Ent_Stratum_Genus_Name;", "Genus_Localised": "Stratum"},
		},
	})
	mustApply(t, e,
		jline(t, 1, "ScanOrganic", map[string]any{
			"SystemAddress": 42, "Body": 5, "ScanType": "Log", "Genus": bact, "Genus_Localised": "Bacterium",
			"Species_Localised": "Bacterium Aurasus",
		}),
		jline(t, 2, "ScanOrganic", map[string]any{
			"SystemAddress": 42, "Body": 5, "ScanType": "Sample", "Genus": bact,
		}),
		saa,
	)
	b := body(t, e, 5)
	if b.BioSignals != 2 {
		t.Errorf("BioSignals = %d, want 2", b.BioSignals)
	}
	g := b.BioFound[bact]
	if g == nil || g.ScannedCount != 2 || g.Species != "Bacterium Aurasus" || g.MinDistance != 500 {
		t.Errorf("bacterium = %+v, want progress and names kept", g)
	}
	s := b.BioFound["$Codex_Ent_Stratum_Genus_Name;"]
	if s == nil || s.ScannedCount != 0 || s.Name != "Stratum" || s.MinDistance != 500 {
		t.Errorf("stratum = %+v", s)
	}
}

func TestBodyCounts(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e, jline(t, 1, "FSSDiscoveryScan", map[string]any{"SystemAddress": 42, "SystemName": "Alpha", "BodyCount": 12}))
	if sys := e.SnapshotSystem(); sys.TotalBodies == nil || *sys.TotalBodies != 12 || sys.Name != "Alpha" {
		t.Fatalf("after discovery scan: %+v", sys)
	}
	mustApply(t, e, jline(t, 2, "FSSAllBodiesFound", map[string]any{"SystemAddress": 42, "SystemName": "Alpha", "Count": 13}))
	if sys := e.SnapshotSystem(); *sys.TotalBodies != 13 {
		t.Errorf("TotalBodies = %d, want 13", *sys.TotalBodies)
	}
}

func TestFSDJump(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e,
		jline(t, 1, "Location", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha", "BodyID": 5}),
		jline(t, 2, "FSSDiscoveryScan", map[string]any{"SystemAddress": 42, "BodyCount": 12}),
		jline(t, 3, "JetConeBoost", map[string]any{"BoostValue": 4.0}),
		jline(t, 4, "Synthesis", map[string]any{"Name": "FSD Premium"}),
	)
	if p := e.SnapshotPlayer(); p.Ship.JetConeBoost != 4 || p.Ship.FSDInjection != 2 {
		t.Fatalf("boosts before jump = %+v", p.Ship)
	}

	var notified []int
	e.RegisterTargetListener(func(id int) { notified = append(notified, id) })
	mustApply(t, e, jline(t, 5, "FSDJump", map[string]any{"SystemAddress": 77, "StarSystem": "Beta"}))

	sys := e.SnapshotSystem()
	if sys.Address != 77 || sys.Name != "Beta" || !sys.JustJumped || sys.TotalBodies != nil {
		t.Errorf("after jump: %+v", sys)
	}
	p := e.SnapshotPlayer()
	if p.TargetID != nil {
		t.Errorf("TargetID = %d, want cleared", *p.TargetID)
	}
	if p.Ship.JetConeBoost != 1 || p.Ship.FSDInjection != 1 {
		t.Errorf("boosts after jump = %+v, want reset", p.Ship)
	}
	if len(notified) != 0 {
		t.Errorf("listeners notified of cleared target: %v", notified)
	}

	mustApply(t, e, jline(t, 6, "Music", map[string]any{"MusicTrack": "Exploration"}))
	if e.SnapshotSystem().JustJumped {
		t.Error("JustJumped still set after a following event")
	}

	// Jumping back keeps what was learned about the first system.
	mustApply(t, e, jline(t, 7, "FSDJump", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha"}))
	if sys := e.SnapshotSystem(); sys.Name != "Alpha" || sys.TotalBodies != nil || !sys.JustJumped {
		t.Errorf("back in Alpha: %+v", sys)
	}
}

func TestUnknownEventsDoNotMoveThePlayer(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e,
		jline(t, 1, "Location", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha"}),
		jline(t, 2, "FSDTarget", map[string]any{"SystemAddress": 99, "Name": "Gamma"}),
	)
	if got := e.SnapshotSystem().Address; got != 42 {
		t.Errorf("current system = %d, want 42", got)
	}
}

func TestLocation_NotifiesOncePerChange(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	var mu sync.Mutex
	var got []int
	e.RegisterTargetListener(func(id int) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, id)
	})

	mustApply(t, e,
		jline(t, 1, "Location", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha", "Body": "Alpha 1", "BodyID": 5}),
		jline(t, 2, "Location", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha", "Body": "Alpha 1", "BodyID": 5}),
		jline(t, 3, "Location", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha", "Body": "Alpha 2", "BodyID": 6}),
	)
	ev, err := journal.Decode([]byte(jline(t, 4, "Location", map[string]any{"SystemAddress": 42, "BodyID": 7})))
	if err != nil {
		t.Fatal(err)
	}
	e.Apply(ev, ApplyFlags{Silent: true})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("notifications = %v, want [5 6]", got)
	}
	if p := e.SnapshotPlayer(); p.TargetID == nil || *p.TargetID != 7 {
		t.Errorf("silent Location did not set target: %v", p.TargetID)
	}
	if name := e.SnapshotSystem().Name; name != "Alpha" {
		t.Errorf("system name = %q, want Alpha", name)
	}
}
