// Package geo provides common geographic types and calculations.
// It centralizes the coordinate and polyline math used by the tracking
// engine so that every component measures distance the same way.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean radius of Earth according to WGS-84 in meters
const EarthRadius = 6371000.0

// Coordinate represents a geographic position (latitude and longitude in
// degrees). It carries no altitude.
//
// Example:
//
//	a := geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
//	b := geo.Coordinate{Latitude: 37.7734, Longitude: -122.4167}
//	meters := geo.Distance(a, b)
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is within the WGS-84 ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String formats the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Polyline is an ordered sequence of coordinates. Insertion order is path
// order; duplicate points are allowed.
type Polyline []Coordinate

// BoundingBox represents a geographic bounding box with southwest and northeast corners
type BoundingBox struct {
	MinLat float64 `json:"min_lat"` // Southern edge (minimum latitude)
	MinLon float64 `json:"min_lon"` // Western edge (minimum longitude)
	MaxLat float64 `json:"max_lat"` // Northern edge (maximum latitude)
	MaxLon float64 `json:"max_lon"` // Eastern edge (maximum longitude)
}

// NewBoundingBox creates a new empty bounding box
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: 90.0, // Start with inverted min/max so any point extends correctly
		MinLon: 180.0,
		MaxLat: -90.0,
		MaxLon: -180.0,
	}
}

// BoundsOf returns the bounding box of a polyline, or nil when it is empty.
func BoundsOf(p Polyline) *BoundingBox {
	if len(p) == 0 {
		return nil
	}
	bb := NewBoundingBox()
	for _, c := range p {
		bb.ExtendWithPoint(c.Latitude, c.Longitude)
	}
	return bb
}

// ExtendWithPoint extends the bounding box to include the specified point
func (bb *BoundingBox) ExtendWithPoint(lat, lon float64) {
	if lat < bb.MinLat {
		bb.MinLat = lat
	}
	if lat > bb.MaxLat {
		bb.MaxLat = lat
	}
	if lon < bb.MinLon {
		bb.MinLon = lon
	}
	if lon > bb.MaxLon {
		bb.MaxLon = lon
	}
}

// Buffer adds a buffer around the bounding box in meters.
// Meters are converted to degrees with a fixed factor that is reasonably
// accurate near the equator; it is used for map padding only.
func (bb *BoundingBox) Buffer(bufferMeters float64) {
	// 0.01 degrees ≈ 1.11 km at the equator
	bufferDegrees := bufferMeters / 111000
	bb.MinLat -= bufferDegrees
	bb.MaxLat += bufferDegrees
	bb.MinLon -= bufferDegrees
	bb.MaxLon += bufferDegrees

	if bb.MinLat < -90 {
		bb.MinLat = -90
	}
	if bb.MaxLat > 90 {
		bb.MaxLat = 90
	}
	if bb.MinLon < -180 {
		bb.MinLon = -180
	}
	if bb.MaxLon > 180 {
		bb.MaxLon = 180
	}
}

// String returns a string representation of the bounding box
func (bb *BoundingBox) String() string {
	return fmt.Sprintf("(%f,%f,%f,%f)", bb.MinLat, bb.MinLon, bb.MaxLat, bb.MaxLon)
}

// HaversineDistance calculates the great-circle distance between two points
// on the Earth's surface given their latitude and longitude in degrees.
// The result is returned in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	// Haversine formula
	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadius * c
}

// Distance returns the great-circle surface distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dlon := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
