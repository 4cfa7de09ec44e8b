// Package render converts navigation state into map formats: GeoJSON for
// web maps and GPX for device export.
package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/navigator"
)

// BoundsPadding is the margin in meters added around rendered bounds.
const BoundsPadding = 50.0

// Feature kinds, stored in the "kind" property.
const (
	KindRoute       = "route"
	KindRemaining   = "remaining"
	KindPosition    = "position"
	KindDestination = "destination"
)

// LineString converts a polyline to orb's lon/lat order.
func LineString(p geo.Polyline) orb.LineString {
	ls := make(orb.LineString, len(p))
	for i, c := range p {
		ls[i] = Point(c)
	}
	return ls
}

// Point converts a coordinate to orb's lon/lat order.
func Point(c geo.Coordinate) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// FeatureCollection renders every candidate route, the remaining path and
// the live position of a navigation. The collection's bbox covers all of
// them plus BoundsPadding.
func FeatureCollection(s navigator.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	bb := geo.NewBoundingBox()
	extend := func(p geo.Polyline) {
		for _, c := range p {
			bb.ExtendWithPoint(c.Latitude, c.Longitude)
		}
	}

	for i, r := range s.Routes {
		if len(r.Polyline) < 2 {
			continue
		}
		f := geojson.NewFeature(LineString(r.Polyline))
		f.Properties["kind"] = KindRoute
		f.Properties["index"] = i
		f.Properties["active"] = i == s.ActiveRouteIndex
		f.Properties["distance"] = r.Distance
		f.Properties["duration"] = r.ExpectedTravelTime
		fc.Append(f)
		extend(r.Polyline)
	}

	if s.Last != nil && len(s.Last.TrimmedPath) > 0 {
		path := s.Last.TrimmedPath
		if len(path) > 1 {
			f := geojson.NewFeature(LineString(path))
			f.Properties["kind"] = KindRemaining
			f.Properties["distance_text"] = s.Last.DistanceText
			fc.Append(f)
		}

		pos := geojson.NewFeature(Point(path[0]))
		pos.Properties["kind"] = KindPosition
		pos.Properties["instruction"] = s.Last.Instruction
		pos.Properties["eta"] = s.Last.ETAClock
		pos.Properties["remaining"] = s.Last.DistanceText
		pos.Properties["off_route"] = s.Last.OffRoute
		pos.Properties["arrived"] = s.Last.HasArrived
		fc.Append(pos)
		extend(path[:1])
	}

	dest := geojson.NewFeature(Point(s.Destination))
	dest.Properties["kind"] = KindDestination
	fc.Append(dest)
	extend(geo.Polyline{s.Destination})

	bb.Buffer(BoundsPadding)
	fc.BBox = geojson.NewBBox(orb.Bound{
		Min: orb.Point{bb.MinLon, bb.MinLat},
		Max: orb.Point{bb.MaxLon, bb.MaxLat},
	})
	return fc
}
