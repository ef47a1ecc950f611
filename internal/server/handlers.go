package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/surface"
)

// CourseResponse is the body of GET /api/distance.
type CourseResponse struct {
	DistanceKM float64 `json:"distance_km"`
	Distance   string  `json:"distance"` // human readable
	Bearing    float64 `json:"bearing"`
	Relative   float64 `json:"relative_bearing"`
	Octant     string  `json:"octant"`
	Arrow      string  `json:"arrow"`
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.hub.Clients()})
}

func (s *Server) system(c *gin.Context) {
	sys := s.reader.SnapshotSystem()
	if sys == nil {
		notFound(c, "no current system")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sys})
}

func (s *Server) bodies(c *gin.Context) {
	byID := s.reader.SnapshotBodies()
	list := make([]*model.Body, 0, len(byID))
	for _, b := range byID {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

func (s *Server) body(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "body id must be an integer")
		return
	}
	b, ok := s.reader.SnapshotBodies()[id]
	if !ok {
		notFound(c, "body not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (s *Server) target(c *gin.Context) {
	b := s.reader.SnapshotTarget()
	if b == nil {
		notFound(c, "no target")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (s *Server) player(c *gin.Context) {
	p := s.reader.SnapshotPlayer()
	// The system is served by /api/system.
	p.System = nil
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) distance(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		badRequest(c, "lat and lon query parameters are required")
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		badRequest(c, "lat or lon out of range")
		return
	}

	course, err := s.reader.Navigate(surface.Coordinates{Latitude: lat, Longitude: lon})
	if errors.Is(err, engine.ErrNoPosition) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": CourseResponse{
		DistanceKM: course.DistanceKM,
		Distance:   surface.FormatDistance(course.DistanceKM),
		Bearing:    course.Bearing,
		Relative:   course.Relative,
		Octant:     surface.Octant(course.Relative),
		Arrow:      surface.Arrow(course.Relative),
	}})
}
