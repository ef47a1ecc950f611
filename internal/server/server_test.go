package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/surface"
)

type fakeReader struct {
	system *model.System
	target *model.Body
	player model.PlayerContext
	course engine.Course
	err    error

	navigatedTo surface.Coordinates
}

func (f *fakeReader) SnapshotSystem() *model.System { return f.system.Clone() }

func (f *fakeReader) SnapshotBodies() map[int]*model.Body {
	out := make(map[int]*model.Body)
	if f.system != nil {
		for id, b := range f.system.Bodies {
			out[id] = b.Clone()
		}
	}
	return out
}

func (f *fakeReader) SnapshotTarget() *model.Body { return f.target }

func (f *fakeReader) SnapshotPlayer() model.PlayerContext { return f.player }

func (f *fakeReader) Navigate(to surface.Coordinates) (engine.Course, error) {
	f.navigatedTo = to
	return f.course, f.err
}

func testSystem() *model.System {
	sys := model.NewSystem(42, "Alpha")
	star := sys.Body(0)
	star.Name, star.Type, star.Scoopable = "Alpha", "K", true
	planet := sys.Body(5)
	planet.Name, planet.Type, planet.Landable = "Alpha 1", "Rocky body", true
	planet.BioSignals = 2
	return sys
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.ServeHTTP(rec, req)
	if out != nil {
		body, _ := io.ReadAll(rec.Body)
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("GET %s: decode %q: %v", path, body, err)
		}
	}
	return rec.Code
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()
	r := &fakeReader{system: testSystem()}
	s := New(r, WithLogger(io.Discard))

	t.Run("system", func(t *testing.T) {
		var resp struct {
			Data model.System `json:"data"`
		}
		if code := get(t, s, "/api/system", &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if resp.Data.Address != 42 || resp.Data.Name != "Alpha" || len(resp.Data.Bodies) != 2 {
			t.Errorf("system = %+v", resp.Data)
		}
	})

	t.Run("bodies sorted by id", func(t *testing.T) {
		var resp struct {
			Data  []model.Body `json:"data"`
			Count int          `json:"count"`
		}
		if code := get(t, s, "/api/bodies", &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if resp.Count != 2 || resp.Data[0].ID != 0 || resp.Data[1].ID != 5 {
			t.Errorf("bodies = %+v", resp)
		}
		if !resp.Data[1].Landable || resp.Data[1].BioSignals != 2 {
			t.Errorf("body 5 = %+v", resp.Data[1])
		}
	})

	t.Run("single body", func(t *testing.T) {
		var resp struct {
			Data model.Body `json:"data"`
		}
		if code := get(t, s, "/api/bodies/5", &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if resp.Data.Name != "Alpha 1" {
			t.Errorf("body = %+v", resp.Data)
		}
	})

	tests := []struct {
		path string
		want int
	}{
		{"/api/bodies/9", http.StatusNotFound},
		{"/api/bodies/abc", http.StatusBadRequest},
		{"/api/target", http.StatusNotFound},
		{"/api/health", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if code := get(t, s, tt.path, nil); code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, code, tt.want)
			}
		})
	}
}

func TestNoSystem(t *testing.T) {
	t.Parallel()
	s := New(&fakeReader{}, WithLogger(io.Discard))
	if code := get(t, s, "/api/system", nil); code != http.StatusNotFound {
		t.Errorf("GET /api/system = %d, want 404", code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if code := get(t, s, "/api/bodies", &resp); code != http.StatusOK || resp.Count != 0 {
		t.Errorf("GET /api/bodies = %d, count %d", code, resp.Count)
	}
}

func TestTargetAndPlayer(t *testing.T) {
	t.Parallel()
	id := 5
	sys := testSystem()
	r := &fakeReader{
		system: sys,
		target: sys.Bodies[5].Clone(),
		player: model.PlayerContext{System: sys, TargetID: &id, Ship: model.DefaultShipStatus()},
	}
	s := New(r, WithLogger(io.Discard))

	var target struct {
		Data model.Body `json:"data"`
	}
	if code := get(t, s, "/api/target", &target); code != http.StatusOK || target.Data.ID != 5 {
		t.Errorf("GET /api/target = %d, %+v", code, target.Data)
	}

	var player struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if code := get(t, s, "/api/player", &player); code != http.StatusOK {
		t.Fatalf("GET /api/player = %d", code)
	}
	if _, ok := player.Data["system"]; ok {
		t.Error("player response embeds the system")
	}
	if string(player.Data["target_id"]) != "5" {
		t.Errorf("target_id = %s, want 5", player.Data["target_id"])
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	t.Run("course", func(t *testing.T) {
		t.Parallel()
		r := &fakeReader{course: engine.Course{DistanceKM: 0.25, Bearing: 45, Relative: 0}}
		s := New(r, WithLogger(io.Discard))
		var resp struct {
			Data CourseResponse `json:"data"`
		}
		if code := get(t, s, "/api/distance?lat=10.5&lon=-20", &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if r.navigatedTo != (surface.Coordinates{Latitude: 10.5, Longitude: -20}) {
			t.Errorf("navigated to %+v", r.navigatedTo)
		}
		if resp.Data.DistanceKM != 0.25 || resp.Data.Distance != "250 m" || resp.Data.Bearing != 45 {
			t.Errorf("course = %+v", resp.Data)
		}
	})

	tests := []struct {
		name  string
		query string
		err   error
		want  int
	}{
		{"missing lon", "?lat=1", nil, http.StatusBadRequest},
		{"not a number", "?lat=x&lon=1", nil, http.StatusBadRequest},
		{"out of range", "?lat=91&lon=1", nil, http.StatusBadRequest},
		{"no position", "?lat=1&lon=1", engine.ErrNoPosition, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(&fakeReader{err: tt.err}, WithLogger(io.Discard))
			if code := get(t, s, "/api/distance"+tt.query, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	s := New(&fakeReader{}, WithLogger(io.Discard), WithAllowOrigins("http://localhost:4200"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("disallowed origin status = %d, want 403", rec.Code)
	}
}
