package osrm

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// polyline6 is the codec for OSRM's geometries=polyline6: Google's
// encoding with six decimal places.
var polyline6 = polyline.Codec{Dim: 2, Scale: 1e6}

// DecodePolyline6 decodes a polyline6 string. An empty string is an empty polyline.
func DecodePolyline6(encoded string) (geo.Polyline, error) {
	if encoded == "" {
		return geo.Polyline{}, nil
	}
	coords, rest, err := polyline6.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline6: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline6: %d trailing bytes", len(rest))
	}

	line := make(geo.Polyline, len(coords))
	for i, c := range coords {
		line[i] = geo.Coordinate{Latitude: c[0], Longitude: c[1]}
	}
	return line, nil
}

// EncodePolyline6 encodes line with six decimal places.
func EncodePolyline6(line geo.Polyline) string {
	coords := make([][]float64, len(line))
	for i, c := range line {
		coords[i] = []float64{c.Latitude, c.Longitude}
	}
	return string(polyline6.EncodeCoords(nil, coords))
}
