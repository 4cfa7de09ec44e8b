package nav

import (
	"errors"
	"fmt"
	"time"
)

// Thresholds holds every distance, ratio and timer the engine uses.
type Thresholds struct {
	OffRouteDriving float64       `koanf:"off_route_driving"` // meters
	OffRouteWalking float64       `koanf:"off_route_walking"` // meters, also used for transit
	MovementGate    float64       `koanf:"movement_gate"`     // meters of net displacement before reroutes are allowed
	OffStep         float64       `koanf:"off_step"`          // meters from the current step segment
	ArrivalRadius   float64       `koanf:"arrival_radius"`    // meters
	RerouteCooldown time.Duration `koanf:"reroute_cooldown"`

	SilentStepLength float64 `koanf:"silent_step_length"` // meters
	AdvanceProgress  float64 `koanf:"advance_progress"`   // fraction of the step segment
	AdvanceFraction  float64 `koanf:"advance_fraction"`   // of the step length, clamped below
	AdvanceMin       float64 `koanf:"advance_min"`        // meters
	AdvanceMax       float64 `koanf:"advance_max"`        // meters
	Lookahead        float64 `koanf:"lookahead"`          // meters to the next maneuver before it is announced

	DensifySpacing float64 `koanf:"densify_spacing"` // meters between trimmer search points
}

// DefaultThresholds returns the canonical threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OffRouteDriving:  40,
		OffRouteWalking:  50,
		MovementGate:     5,
		OffStep:          40,
		ArrivalRadius:    50,
		RerouteCooldown:  20 * time.Second,
		SilentStepLength: 5,
		AdvanceProgress:  0.85,
		AdvanceFraction:  0.15,
		AdvanceMin:       20,
		AdvanceMax:       60,
		Lookahead:        200,
		DensifySpacing:   1,
	}
}

// OffRouteDistance returns the drift distance that triggers a reroute for mode.
func (t Thresholds) OffRouteDistance(mode TransportMode) float64 {
	if mode == ModeDriving || mode == "" {
		return t.OffRouteDriving
	}
	return t.OffRouteWalking
}

// Validate rejects negative values and an inverted advance window.
func (t Thresholds) Validate() error {
	fields := map[string]float64{
		"off_route_driving":  t.OffRouteDriving,
		"off_route_walking":  t.OffRouteWalking,
		"movement_gate":      t.MovementGate,
		"off_step":           t.OffStep,
		"arrival_radius":     t.ArrivalRadius,
		"reroute_cooldown":   t.RerouteCooldown.Seconds(),
		"silent_step_length": t.SilentStepLength,
		"advance_progress":   t.AdvanceProgress,
		"advance_fraction":   t.AdvanceFraction,
		"advance_min":        t.AdvanceMin,
		"advance_max":        t.AdvanceMax,
		"lookahead":          t.Lookahead,
		"densify_spacing":    t.DensifySpacing,
	}
	var errs []error
	for name, v := range fields {
		if v < 0 {
			errs = append(errs, fmt.Errorf("threshold %s must not be negative (got %v)", name, v))
		}
	}
	if t.AdvanceMax < t.AdvanceMin {
		errs = append(errs, fmt.Errorf("advance_max (%v) is below advance_min (%v)", t.AdvanceMax, t.AdvanceMin))
	}
	return errors.Join(errs...)
}

// advanceDistance is clamp(total*AdvanceFraction, AdvanceMin, AdvanceMax).
func (t Thresholds) advanceDistance(total float64) float64 {
	d := total * t.AdvanceFraction
	if d < t.AdvanceMin {
		d = t.AdvanceMin
	}
	if d > t.AdvanceMax {
		d = t.AdvanceMax
	}
	return d
}
