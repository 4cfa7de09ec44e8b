// Package replay turns recorded GPX files into location fixes so a
// navigation can be driven without a live location source.
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
)

// DefaultInterval spaces fixes from GPX points that carry no timestamp.
const DefaultInterval = time.Second

// ErrNoPoints is returned for GPX documents without usable points.
var ErrNoPoints = errors.New("gpx contains no points")

// LoadFile reads a GPX file. See Parse.
func LoadFile(path string, start time.Time) ([]nav.Fix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gpx: %w", err)
	}
	return Parse(data, start)
}

// Parse converts the first non-empty of tracks, routes or waypoints into
// fixes. Points without a timestamp are placed DefaultInterval after the
// previous fix, the first one at start. Course is the bearing towards the
// next point; the last point keeps the course of the one before it.
func Parse(data []byte, start time.Time) ([]nav.Fix, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	points := trackPoints(doc)
	if len(points) == 0 {
		for _, r := range doc.Routes {
			points = append(points, r.Points...)
		}
	}
	if len(points) == 0 {
		points = doc.Waypoints
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	fixes := make([]nav.Fix, len(points))
	prev := start.Add(-DefaultInterval)
	for i, p := range points {
		ts := p.Timestamp
		if ts.IsZero() {
			ts = prev.Add(DefaultInterval)
		}
		fixes[i] = nav.Fix{
			Coordinate: geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude},
			Timestamp:  ts,
			Course:     -1,
		}
		prev = ts
	}

	for i := range fixes {
		switch {
		case i+1 < len(fixes):
			fixes[i].Course = geo.Bearing(fixes[i].Coordinate, fixes[i+1].Coordinate)
		case i > 0:
			fixes[i].Course = fixes[i-1].Course
		}
	}
	return fixes, nil
}

func trackPoints(doc *gpx.GPX) []gpx.GPXPoint {
	var points []gpx.GPXPoint
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			points = append(points, segment.Points...)
		}
	}
	return points
}

// Play calls fn for each fix in order. Gaps between fix timestamps are
// waited out, divided by speed; a speed of 0 or less replays without
// waiting. It stops at the first error from fn or when ctx is done.
func Play(ctx context.Context, fixes []nav.Fix, speed float64, fn func(nav.Fix) error) error {
	for i, f := range fixes {
		if i > 0 && speed > 0 {
			gap := f.Timestamp.Sub(fixes[i-1].Timestamp)
			if gap > 0 {
				timer := time.NewTimer(time.Duration(float64(gap) / speed))
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
