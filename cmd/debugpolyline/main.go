// Command debugpolyline decodes an OSRM polyline6 string and prints each
// vertex with its distance along the line.
package main

import (
	"fmt"
	"os"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/osrm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debugpolyline <encoded_polyline6>")
		os.Exit(1)
	}

	points, err := osrm.DecodePolyline6(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	cum, total := geo.CumulativeDistances(points)
	for i, pt := range points {
		along := 0.0
		if i < len(cum) {
			along = cum[i]
		}
		fmt.Printf("Point %d: Latitude: %.6f, Longitude: %.6f, Along: %.1f m\n", i, pt.Latitude, pt.Longitude, along)
	}
	fmt.Printf("\n%d points, %.1f m\n", len(points), total)

	// Round trip to confirm the encoder agrees with the input.
	if encoded := osrm.EncodePolyline6(points); encoded != os.Args[1] {
		fmt.Printf("Re-encoded string differs: %s\n", encoded)
	}
}
