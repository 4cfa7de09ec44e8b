package nav

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/testutil"
)

var t0 = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

const degPerMeter = 180 / (math.Pi * geo.EarthRadius)

// pt places a coordinate north and east of (0, 0), in meters. Near the
// equator both axes share the same scale.
func pt(north, east float64) geo.Coordinate {
	return geo.Coordinate{Latitude: north * degPerMeter, Longitude: east * degPerMeter}
}

// northLine runs from north=from to north=to with a vertex every 10 m.
func northLine(from, to float64) geo.Polyline {
	var p geo.Polyline
	for m := from; m < to; m += 10 {
		p = append(p, pt(m, 0))
	}
	return append(p, pt(to, 0))
}

func straightRoute(length, seconds float64, steps ...Step) Route {
	return Route{
		Polyline:           northLine(0, length),
		Distance:           length,
		ExpectedTravelTime: seconds,
		Steps:              steps,
	}
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := NewTracker(DefaultThresholds(),
		WithLogger(testutil.DiscardLogger()),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)
	return tr
}

func fixAt(c geo.Coordinate, offset time.Duration) Fix {
	return Fix{Coordinate: c, Timestamp: t0.Add(offset), Course: -1}
}
