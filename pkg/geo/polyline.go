package geo

import "math"

// CumulativeDistances returns the running along-path distance for each
// vertex of p and the total length. cum[0] is 0 and cum[i] adds the
// distance from p[i-1] to p[i]. Polylines with one point or fewer have no
// usable length: the result is a nil slice and a zero total.
func CumulativeDistances(p Polyline) (cum []float64, total float64) {
	if len(p) <= 1 {
		return nil, 0
	}

	cum = make([]float64, len(p))
	for i := 1; i < len(p); i++ {
		cum[i] = cum[i-1] + Distance(p[i-1], p[i])
	}
	return cum, cum[len(cum)-1]
}

// Length returns the total along-path length of p in meters.
func Length(p Polyline) float64 {
	_, total := CumulativeDistances(p)
	return total
}

// NearestPointIndex returns the index of the vertex of p closest to pt.
// Ties resolve to the lowest index. It returns -1 for an empty polyline.
func NearestPointIndex(p Polyline, pt Coordinate) int {
	idx, _ := NearestPoint(p, pt)
	return idx
}

// NearestPoint is NearestPointIndex that also returns the distance in meters
// to the chosen vertex. The distance is +Inf for an empty polyline.
func NearestPoint(p Polyline, pt Coordinate) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range p {
		// strict less-than keeps the first occurrence on ties
		if d := Distance(c, pt); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

// Interpolate returns the point at fraction t along the straight line from
// start to end in coordinate space. t=0 returns start, t=1 returns end.
// Linear interpolation is adequate for the short spans it is used on.
func Interpolate(start, end Coordinate, t float64) Coordinate {
	return Coordinate{
		Latitude:  start.Latitude + t*(end.Latitude-start.Latitude),
		Longitude: start.Longitude + t*(end.Longitude-start.Longitude),
	}
}

// Densify inserts interpolated points between every consecutive pair of p
// so that neighbours are roughly stepMeters apart. Original vertices,
// including the first and last, are kept exactly. A non-positive step or a
// polyline with fewer than two points is returned as a copy.
func Densify(p Polyline, stepMeters float64) Polyline {
	if len(p) < 2 || stepMeters <= 0 {
		out := make(Polyline, len(p))
		copy(out, p)
		return out
	}

	out := make(Polyline, 0, len(p))
	out = append(out, p[0])
	for i := 1; i < len(p); i++ {
		a, b := p[i-1], p[i]
		n := int(math.Ceil(Distance(a, b) / stepMeters))
		for k := 1; k < n; k++ {
			out = append(out, Interpolate(a, b, float64(k)/float64(n)))
		}
		out = append(out, b)
	}
	return out
}
