// Package surface implements great-circle navigation on a planetary sphere:
// haversine distance, initial course, and the coarse relative-bearing
// indicators shown next to sample points.
package surface

import (
	"fmt"
	"math"
)

// Coordinates is a point on a planet surface in degrees.
type Coordinates struct {
	Latitude  float64 `toml:"latitude" json:"latitude" yaml:"latitude"`
	Longitude float64 `toml:"longitude" json:"longitude" yaml:"longitude"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance in kilometres between a and b on
// a sphere of radius metres. ok is false when the radius is zero or either
// point is unknown.
func Distance(radius float64, a, b *Coordinates) (km float64, ok bool) {
	if radius == 0 || a == nil || b == nil {
		return 0, false
	}
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h a hair outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Asin(math.Sqrt(h))
	return radius * c / 1000, true
}

// FormatDistance renders km as metres below one kilometre.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.2f km", km)
}

// Bearing returns the initial course from a to b in degrees, normalised to
// [0, 360).
func Bearing(a, b Coordinates) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return normalize(degrees(math.Atan2(y, x)))
}

// RelativeBearing returns bearing relative to the current heading, in [0, 360).
func RelativeBearing(bearing, heading float64) float64 {
	return normalize(bearing - heading)
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// math.Mod(-0.0000001, 360)+360 can round to exactly 360.
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

var (
	octants = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	arrows  = [8]string{"↑", "↗", "→", "↘", "↓", "↙", "←", "↖"}
)

func octantIndex(rel float64) int {
	return int(math.Floor((normalize(rel)+22.5)/45)) % 8
}

// Octant names the 45° sector containing the relative bearing.
func Octant(rel float64) string { return octants[octantIndex(rel)] }

// Arrow is the glyph for the 45° sector containing the relative bearing.
func Arrow(rel float64) string { return arrows[octantIndex(rel)] }
