package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/status"
	"github.com/papapumpkin/parallax/internal/surface"
	"github.com/papapumpkin/parallax/internal/telemetry"
)

var baseTime = time.Date(2025, 10, 26, 19, 0, 0, 0, time.UTC)

// stamp returns a journal timestamp i seconds after baseTime.
func stamp(i int) string {
	return baseTime.Add(time.Duration(i) * time.Second).Format(time.RFC3339)
}

// jline renders a journal line with the given timestamp offset and event tag.
func jline(t *testing.T, i int, event string, fields map[string]any) string {
	t.Helper()
	m := map[string]any{"timestamp": stamp(i), "event": event}
	for k, v := range fields {
		m[k] = v
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal %s: %v", event, err)
	}
	return string(data)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	journalDir := filepath.Join(root, "journal")
	if err := os.MkdirAll(journalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return Config{
		JournalDir:     journalDir,
		CacheDir:       filepath.Join(root, "cache"),
		TailInterval:   10 * time.Millisecond,
		StatusInterval: 10 * time.Millisecond,
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()
	return newEngineWithConfig(t, testConfig(t), opts...)
}

func newEngineWithConfig(t *testing.T, cfg Config, opts ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()
	var logBuf bytes.Buffer
	opts = append([]Option{WithLogger(&syncWriter{w: &logBuf})}, opts...)
	e, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, &logBuf
}

// syncWriter serialises writes from the pipeline's goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func mustApply(t *testing.T, e *Engine, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !e.ApplyLine(l) {
			t.Fatalf("ApplyLine(%s) = false, want true", l)
		}
	}
}

func body(t *testing.T, e *Engine, id int) *model.Body {
	t.Helper()
	b, ok := e.SnapshotBodies()[id]
	if !ok {
		t.Fatalf("body %d not in current system", id)
	}
	return b
}

func floatPtr(v float64) *float64 { return &v }


func TestNew_MissingJournalDir(t *testing.T) {
	t.Parallel()
	_, err := New(Config{JournalDir: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, ErrJournalDir) {
		t.Fatalf("New(missing dir) error = %v, want ErrJournalDir", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	e, err := New(Config{JournalDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg := e.Config()
	if cfg.CacheDir != filepath.Join(dir, "cache") {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.StatusFile != filepath.Join(dir, status.FileName) {
		t.Errorf("StatusFile = %q", cfg.StatusFile)
	}
	if cfg.LineBuffer != DefaultLineBuffer || cfg.TailInterval != journal.DefaultTailInterval {
		t.Errorf("cfg = %+v", cfg)
	}
	if p := e.SnapshotPlayer(); p.Ship.JetConeBoost != 1 || p.Ship.FSDInjection != 1 {
		t.Errorf("initial ship = %+v, want neutral boosts", p.Ship)
	}
}

func TestApplyStatus(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e, jline(t, 1, "Scan", map[string]any{
		"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5, "PlanetClass": "Rocky body", "Radius": 3.4e6,
	}))
	var got []int
	e.RegisterTargetListener(func(id int) { got = append(got, id) })

	t.Run("body name resolves target", func(t *testing.T) {
		e.ApplyStatus(&status.Snapshot{BodyName: "Alpha 1"})
		if p := e.SnapshotPlayer(); p.TargetID == nil || *p.TargetID != 5 {
			t.Fatalf("TargetID = %v, want 5", p.TargetID)
		}
		e.ApplyStatus(&status.Snapshot{BodyName: "Nowhere"})
		if p := e.SnapshotPlayer(); *p.TargetID != 5 {
			t.Errorf("unknown body name changed target to %d", *p.TargetID)
		}
	})

	t.Run("destination wins", func(t *testing.T) {
		dest := 9
		e.ApplyStatus(&status.Snapshot{
			BodyName:    "Alpha 1",
			Destination: &status.Destination{System: 42, Body: &dest, Name: "Alpha 4"},
		})
		if p := e.SnapshotPlayer(); *p.TargetID != 9 {
			t.Fatalf("TargetID = %d, want 9", *p.TargetID)
		}
	})

	t.Run("position and fuel", func(t *testing.T) {
		e.ApplyStatus(&status.Snapshot{
			Latitude: floatPtr(-12.5), Longitude: floatPtr(44.25), Heading: floatPtr(270),
			BodyName: "Alpha 1",
			Fuel:     &status.Fuel{Main: 12.5, Reservoir: 0.4},
		})
		p := e.SnapshotPlayer()
		if p.Position == nil || p.Position.Latitude != -12.5 || p.Position.Heading != 270 {
			t.Fatalf("Position = %+v", p.Position)
		}
		// No PlanetRadius in the snapshot: the scanned radius is used.
		if p.Position.PlanetRadius != 3.4e6 {
			t.Errorf("PlanetRadius = %v, want 3.4e6", p.Position.PlanetRadius)
		}
		if p.Ship.Fuel.Main != 12.5 || p.Ship.Fuel.Reservoir != 0.4 {
			t.Errorf("Fuel = %+v", p.Ship.Fuel)
		}
	})

	t.Run("partial position ignored", func(t *testing.T) {
		e.ApplyStatus(&status.Snapshot{Latitude: floatPtr(1), Longitude: floatPtr(2)})
		if p := e.SnapshotPlayer(); p.Position.Latitude != -12.5 {
			t.Errorf("position updated without heading: %+v", p.Position)
		}
	})

	// The position update named Alpha 1 again, which retargets it.
	if len(got) != 3 || got[0] != 5 || got[1] != 9 || got[2] != 5 {
		t.Errorf("notifications = %v, want [5 9 5]", got)
	}
}

func TestSnapshotTarget(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	if e.SnapshotTarget() != nil {
		t.Fatal("SnapshotTarget with no target should be nil")
	}

	dest := 6
	mustApply(t, e, jline(t, 1, "Location", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha"}))
	e.ApplyStatus(&status.Snapshot{Destination: &status.Destination{System: 42, Body: &dest, Name: "Alpha 2"}})
	stub := e.SnapshotTarget()
	if stub == nil || stub.ID != 6 || stub.Name != "Alpha 2" || stub.Type != "" {
		t.Fatalf("stub = %+v", stub)
	}

	mustApply(t, e, jline(t, 2, "FSSBodySignals", map[string]any{
		"SystemAddress": 42, "BodyName": "Alpha 2", "BodyID": 6,
		"Signals": []map[string]any{{"Type": "$SAA_SignalType_Biological;", "Count": 1}},
	}))
	if got := e.SnapshotTarget(); got.Name != "Alpha 2" || got.BioSignals != 0 {
		t.Errorf("unscanned target = %+v, want stub", got)
	}

	mustApply(t, e, jline(t, 3, "Scan", map[string]any{
		"SystemAddress": 42, "BodyName": "Alpha 2", "BodyID": 6, "PlanetClass": "Icy body",
	}))
	full := e.SnapshotTarget()
	if full.Type != "Icy body" || full.BioSignals != 1 {
		t.Errorf("scanned target = %+v", full)
	}
	full.Name = "mutated"
	if e.SnapshotTarget().Name != "Alpha 2" {
		t.Error("SnapshotTarget returned shared state")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	mustApply(t, e, jline(t, 1, "Scan", map[string]any{
		"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5, "PlanetClass": "Rocky body",
		"Materials": []map[string]any{{"Name": "iron", "Percent": 20.0}},
	}))
	bodies := e.SnapshotBodies()
	bodies[5].Materials["iron"] = 99
	delete(bodies, 5)
	if b := body(t, e, 5); b.Materials["iron"] != 20 {
		t.Errorf("snapshot mutation leaked: %v", b.Materials)
	}

	empty, _ := newTestEngine(t)
	if bodies := empty.SnapshotBodies(); bodies == nil || len(bodies) != 0 {
		t.Errorf("SnapshotBodies without a system = %v, want empty map", bodies)
	}
}

func TestPersistence(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	e, _ := newEngineWithConfig(t, cfg)
	mustApply(t, e,
		jline(t, 1, "FSDJump", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha"}),
		jline(t, 2, "FSSDiscoveryScan", map[string]any{"SystemAddress": 42, "BodyCount": 3}),
		jline(t, 3, "Scan", map[string]any{"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5, "PlanetClass": "Rocky body", "Landable": true}),
	)

	sys, found, err := e.Store().LoadSystem(42)
	if err != nil || !found {
		t.Fatalf("LoadSystem = %v, %v", found, err)
	}
	if sys.Name != "Alpha" || *sys.TotalBodies != 3 || !sys.Bodies[5].Landable || sys.JustJumped {
		t.Errorf("cached system = %+v", sys)
	}

	t.Run("cache is the base for a new session", func(t *testing.T) {
		e2, _ := newEngineWithConfig(t, Config{JournalDir: cfg.JournalDir, CacheDir: cfg.CacheDir})
		mustApply(t, e2, jline(t, 4, "FSSBodySignals", map[string]any{
			"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5,
			"Signals": []map[string]any{{"Type": "$SAA_SignalType_Geological;", "Count": 2}},
		}))
		b := body(t, e2, 5)
		if !b.Landable || b.Type != "Rocky body" || b.GeoSignals != 2 {
			t.Errorf("merged body = %+v", b)
		}
	})

	t.Run("tolerates a wiped cache directory", func(t *testing.T) {
		if err := os.RemoveAll(cfg.CacheDir); err != nil {
			t.Fatal(err)
		}
		mustApply(t, e, jline(t, 10, "Scan", map[string]any{"SystemAddress": 42, "BodyName": "Alpha 2", "BodyID": 6, "PlanetClass": "Icy body"}))
		sys, found, err := e.Store().LoadSystem(42)
		if err != nil || !found || sys.Bodies[6] == nil {
			t.Errorf("rewrite after wipe = %v, %v, %+v", found, err, sys)
		}
	})
}

func TestTelemetry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	em, err := telemetry.NewEmitter(path)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, WithTelemetry(em))
	mustApply(t, e,
		jline(t, 1, "FSDJump", map[string]any{"SystemAddress": 42, "StarSystem": "Alpha"}),
		jline(t, 2, "Scan", map[string]any{"SystemAddress": 42, "BodyName": "Alpha 1", "BodyID": 5, "PlanetClass": "Rocky body"}),
		jline(t, 3, "Music", map[string]any{"MusicTrack": "Exploration"}),
	)
	ev, err := journal.Decode([]byte(jline(t, 4, "Scan", map[string]any{"SystemAddress": 42, "BodyName": "Alpha 2", "BodyID": 6})))
	if err != nil {
		t.Fatal(err)
	}
	e.Apply(ev, ApplyFlags{Silent: true})
	if err := em.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("activity lines = %d, want 2:\n%s", len(lines), data)
	}
	var kinds []string
	for _, l := range lines {
		evt, err := telemetry.Decode([]byte(l))
		if err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, evt.Kind)
	}
	if kinds[0] != telemetry.KindJump || kinds[1] != telemetry.KindScan {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestNavigate(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	if _, err := e.Navigate(surface.Coordinates{}); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("Navigate without position error = %v, want ErrNoPosition", err)
	}
	e.ApplyStatus(&status.Snapshot{
		Latitude: floatPtr(0), Longitude: floatPtr(0), Heading: floatPtr(90), PlanetRadius: floatPtr(1e6),
	})
	c, err := e.Navigate(surface.Coordinates{Latitude: 0, Longitude: 90})
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	// A quarter of the circumference of a 1000 km sphere.
	if want := 1570.796; c.DistanceKM < want-0.01 || c.DistanceKM > want+0.01 {
		t.Errorf("DistanceKM = %v, want %v", c.DistanceKM, want)
	}
	if c.Bearing < 89.999 || c.Bearing > 90.001 {
		t.Errorf("Bearing = %v, want 90", c.Bearing)
	}
	if c.Relative > 0.001 && c.Relative < 359.999 {
		t.Errorf("Relative = %v, want 0", c.Relative)
	}
}
