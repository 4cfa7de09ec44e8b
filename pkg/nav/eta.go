package nav

import (
	"fmt"
	"math"
	"time"
)

// ClockLayout is the arrival clock format ("3:04 PM").
const ClockLayout = "3:04 PM"

// ETAFormatter turns a remaining distance into the progress strings shown
// during navigation.
type ETAFormatter struct {
	// Location is the time zone of the arrival clock. nil means time.Local.
	Location *time.Location
}

// ETA is the formatted progress for one update.
type ETA struct {
	RemainingDistance float64
	RemainingTime     time.Duration
	Arrival           time.Time
	DistanceText      string
	DurationText      string
	Clock             string
}

// Label joins distance and clock the way the navigation banner shows them.
func (e ETA) Label() string {
	return e.DistanceText + " – " + e.Clock
}

// Compute derives the ETA for route. remaining is the length of the
// currently rendered path; a negative value falls back to the route's
// nominal distance.
func (f ETAFormatter) Compute(route Route, remaining float64, now time.Time) ETA {
	if remaining < 0 {
		remaining = route.Distance
	}
	seconds := route.SecondsPerMeter() * remaining
	remainingTime := time.Duration(seconds * float64(time.Second))

	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	arrival := now.Add(remainingTime).In(loc)

	return ETA{
		RemainingDistance: remaining,
		RemainingTime:     remainingTime,
		Arrival:           arrival,
		DistanceText:      FormatDistance(remaining),
		DurationText:      FormatDuration(remainingTime),
		Clock:             arrival.Format(ClockLayout),
	}
}

// FormatDistance renders meters below 1000 m and kilometers with one
// decimal from 1000 m up. Values that would round up to "1000 m" are shown
// in kilometers.
func FormatDistance(meters float64) string {
	if math.Round(meters) < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders whole minutes, truncating any remainder.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d/time.Minute))
}
