package nav

import (
	"math"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// Selection is the route selector's verdict for one position.
type Selection struct {
	// Index is the route to follow. It always equals the active index the
	// selector was given: switching routes happens only through a reroute.
	Index int
	// Distances holds the nearest-vertex distance to each candidate;
	// candidates without geometry report +Inf.
	Distances []float64
	// OffRoute is set when the user is moving and has drifted beyond the
	// threshold from the active route.
	OffRoute bool
}

// SelectRoute measures the distance from pos to every candidate and decides
// whether the active route is still being followed. A nearer candidate never
// causes a switch, which keeps the display from oscillating between
// near-parallel alternatives.
func SelectRoute(pos geo.Coordinate, candidates []geo.Polyline, active int, threshold float64, moving bool) Selection {
	sel := Selection{Index: active}
	if len(candidates) == 0 {
		return sel
	}

	sel.Distances = make([]float64, len(candidates))
	for i, line := range candidates {
		if len(line) == 0 {
			sel.Distances[i] = math.Inf(1)
			continue
		}
		_, sel.Distances[i] = geo.NearestPoint(line, pos)
	}

	if !moving || active < 0 || active >= len(candidates) {
		return sel
	}
	d := sel.Distances[active]
	sel.OffRoute = !math.IsInf(d, 1) && d > threshold
	return sel
}
