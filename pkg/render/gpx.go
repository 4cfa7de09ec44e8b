package render

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/version"
)

// GPX exports the active route as a GPX route. Each maneuver with an
// instruction becomes a waypoint at the start of its segment.
func GPX(s navigator.Snapshot) ([]byte, error) {
	route, ok := s.ActiveRoute()
	if !ok {
		return nil, fmt.Errorf("navigation %s has no route", s.ID)
	}

	doc := &gpx.GPX{
		Creator: version.Name + " " + version.BuildVersion,
		Name:    "navtrack " + s.ID,
	}

	rte := gpx.GPXRoute{Name: fmt.Sprintf("%s route %d", s.Mode, s.ActiveRouteIndex)}
	for _, c := range route.Polyline {
		rte.Points = append(rte.Points, gpx.GPXPoint{
			Point: gpx.Point{Latitude: c.Latitude, Longitude: c.Longitude},
		})
	}
	doc.Routes = append(doc.Routes, rte)

	for _, step := range route.Steps {
		if step.Instruction == "" || len(step.Polyline) == 0 {
			continue
		}
		start := step.Polyline[0]
		doc.Waypoints = append(doc.Waypoints, gpx.GPXPoint{
			Point: gpx.Point{Latitude: start.Latitude, Longitude: start.Longitude},
			Name:  step.Instruction,
		})
	}

	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
