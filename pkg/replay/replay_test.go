package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/navtrack/pkg/nav"
)

var start = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

const trackGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>walk</name><trkseg>
    <trkpt lat="41.3851" lon="2.1734"><time>2026-10-19T08:00:00Z</time></trkpt>
    <trkpt lat="41.3860" lon="2.1734"><time>2026-10-19T08:00:10Z</time></trkpt>
    <trkpt lat="41.3860" lon="2.1746"><time>2026-10-19T08:00:25Z</time></trkpt>
  </trkseg></trk>
</gpx>`

const routeGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte><name>plan</name>
    <rtept lat="41.3851" lon="2.1734"></rtept>
    <rtept lat="41.3851" lon="2.1746"></rtept>
  </rte>
</gpx>`

func TestParseTrack(t *testing.T) {
	fixes, err := Parse([]byte(trackGPX), start)
	require.NoError(t, err)
	require.Len(t, fixes, 3)

	assert.Equal(t, 41.3851, fixes[0].Coordinate.Latitude)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 10, 0, time.UTC), fixes[1].Timestamp.UTC())
	assert.InDelta(t, 0, fixes[0].Course, 0.5, "heading north")
	assert.InDelta(t, 90, fixes[1].Course, 0.5, "heading east")
	assert.Equal(t, fixes[1].Course, fixes[2].Course)
}

func TestParseRouteWithoutTimes(t *testing.T) {
	fixes, err := Parse([]byte(routeGPX), start)
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.Equal(t, start, fixes[0].Timestamp)
	assert.Equal(t, start.Add(DefaultInterval), fixes[1].Timestamp)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`<gpx version="1.1" creator="test"></gpx>`), start)
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = Parse([]byte("not xml"), start)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.gpx"), start)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.gpx")
	require.NoError(t, os.WriteFile(path, []byte(trackGPX), 0o600))

	fixes, err := LoadFile(path, start)
	require.NoError(t, err)
	assert.Len(t, fixes, 3)
}

func TestPlay(t *testing.T) {
	fixes, err := Parse([]byte(trackGPX), start)
	require.NoError(t, err)

	var got []nav.Fix
	began := time.Now()
	err = Play(context.Background(), fixes, 1000, func(f nav.Fix) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, fixes, got)
	assert.GreaterOrEqual(t, time.Since(began), 25*time.Millisecond, "25 s of track at 1000x")
}

func TestPlayStops(t *testing.T) {
	fixes, err := Parse([]byte(trackGPX), start)
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = Play(context.Background(), fixes, 0, func(nav.Fix) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Play(ctx, fixes, 1, func(nav.Fix) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
