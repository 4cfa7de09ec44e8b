package nav

import "github.com/NERVsystems/navtrack/pkg/geo"

// TrimPath returns the part of route still ahead of pos: pos itself
// followed by every vertex from the nearest one to the end. The result
// always starts at the live position. An empty route yields an empty path.
func TrimPath(route geo.Polyline, pos geo.Coordinate) geo.Polyline {
	if len(route) == 0 {
		return geo.Polyline{}
	}

	nearest := geo.NearestPointIndex(route, pos)
	out := make(geo.Polyline, 0, len(route)-nearest+1)
	out = append(out, pos)
	return append(out, route[nearest:]...)
}
