package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/replay"
)

var errArrived = errors.New("arrived")

// runReplay plans a navigation from the first recorded fix, follows the
// chosen route and feeds the recording through the tracker, printing each
// guidance change.
func runReplay(ctx context.Context, manager *navigator.Manager, opts options, out io.Writer, logger *slog.Logger) error {
	fixes, err := replay.LoadFile(opts.gpxFile, time.Now())
	if err != nil {
		return err
	}
	mode, err := nav.ParseTransportMode(opts.transport)
	if err != nil {
		return err
	}

	destination := fixes[len(fixes)-1].Coordinate
	if opts.dest != "" {
		if destination, err = parseCoordinate(opts.dest); err != nil {
			return err
		}
	}

	snap, err := manager.Plan(ctx, fixes[0].Coordinate, destination, mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, snap.Summary())
	if snap.LastError != "" {
		return fmt.Errorf("plan navigation: %s", snap.LastError)
	}
	if _, err := manager.Start(snap.ID, opts.route); err != nil {
		return err
	}
	defer func() {
		if err := manager.End(snap.ID); err != nil {
			logger.Warn("failed to end navigation", "id", snap.ID, "error", err)
		}
	}()

	logger.Info("replaying", "file", opts.gpxFile, "fixes", len(fixes), "speed", opts.speed)
	last := ""
	err = replay.Play(ctx, fixes, opts.speed, func(fix nav.Fix) error {
		res, err := manager.Update(snap.ID, fix)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s | %s | %s", res.Instruction, res.DistanceText, res.ETAClock)
		if res.OffRoute {
			line += " | off route"
		}
		if line != last {
			fmt.Fprintf(out, "%s  %s\n", fix.Timestamp.Format(time.TimeOnly), line)
			last = line
		}
		if res.HasArrived {
			return errArrived
		}
		return nil
	})
	if errors.Is(err, errArrived) {
		return nil
	}
	return err
}

func parseCoordinate(s string) (geo.Coordinate, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q must be lat,lon", s)
	}
	var c geo.Coordinate
	var err error
	if c.Latitude, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	if c.Longitude, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q out of range", s)
	}
	return c, nil
}
