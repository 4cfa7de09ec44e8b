package nav

import (
	"strings"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

const (
	// ContinueInstruction is shown while the next maneuver is still far away.
	ContinueInstruction = "Continue straight"
	// ArrivedInstruction is shown once every step has been completed.
	ArrivedInstruction = "You have arrived"
)

// Direction glyphs prefixed to instructions.
const (
	GlyphLeft       = "←"
	GlyphRight      = "→"
	GlyphRoundabout = "⟳"
	GlyphContinue   = "↑"
	GlyphOther      = "•"
)

// Glyph picks a direction glyph by keyword. The first matching keyword in
// the order left, right, roundabout, continue wins.
func Glyph(instruction string) string {
	lower := strings.ToLower(instruction)
	switch {
	case strings.Contains(lower, "left"):
		return GlyphLeft
	case strings.Contains(lower, "right"):
		return GlyphRight
	case strings.Contains(lower, "roundabout"):
		return GlyphRoundabout
	case strings.Contains(lower, "continue"):
		return GlyphContinue
	default:
		return GlyphOther
	}
}

// FormatInstruction prefixes an instruction with its glyph.
func FormatInstruction(instruction string) string {
	return Glyph(instruction) + " " + instruction
}

func (t *Tracker) isSilent(step Step) bool {
	return strings.TrimSpace(step.Instruction) == "" && geo.Length(step.Polyline) <= t.thresholds.SilentStepLength
}

// trackSteps runs one evaluation of the maneuver state machine for the
// active route. It reports true when the user has left the current step's
// segment; in that case neither the step index nor the display changes.
func (t *Tracker) trackSteps(s *Session, routeIndex int, pos geo.Coordinate) (offStep bool) {
	steps := s.routes[routeIndex].Steps
	if len(steps) == 0 {
		s.display = FormatInstruction(ContinueInstruction)
		return false
	}
	if s.CurrentStepIndex >= len(steps) {
		s.CurrentStepIndex = len(steps)
		s.display = ArrivedInstruction
		return false
	}

	last := len(steps) - 1
	for s.CurrentStepIndex < last && t.isSilent(steps[s.CurrentStepIndex]) {
		s.CurrentStepIndex++
	}

	segment := s.stepGeometry(routeIndex, s.CurrentStepIndex, t.thresholds.DensifySpacing)
	nearest, dist := geo.NearestPoint(segment, pos)
	if nearest >= 0 && dist > t.thresholds.OffStep {
		return true
	}

	cum, total := geo.CumulativeDistances(segment)
	progress, toEnd := 0.0, 0.0
	if total > 0 {
		progress = cum[nearest] / total
		toEnd = total - cum[nearest]
	}
	if s.CurrentStepIndex < last &&
		(progress >= t.thresholds.AdvanceProgress || toEnd <= t.thresholds.advanceDistance(total)) {
		s.CurrentStepIndex++
	}

	s.display = t.displayText(steps, s.CurrentStepIndex, pos)
	return false
}

// displayText chooses what to announce while on step idx: the next
// maneuver when it is close, a generic continue otherwise. On the final
// step its own instruction is shown.
func (t *Tracker) displayText(steps []Step, idx int, pos geo.Coordinate) string {
	if idx == len(steps)-1 {
		if text := strings.TrimSpace(steps[idx].Instruction); text != "" {
			return FormatInstruction(text)
		}
		return FormatInstruction(ContinueInstruction)
	}

	next := steps[idx+1]
	text := strings.TrimSpace(next.Instruction)
	if text == "" || len(next.Polyline) == 0 {
		return FormatInstruction(ContinueInstruction)
	}
	if geo.Distance(pos, next.Polyline[0]) > t.thresholds.Lookahead {
		return FormatInstruction(ContinueInstruction)
	}
	return FormatInstruction(text)
}
