package osrm

import (
	"fmt"
	"strings"
)

// compass converts a bearing to one of eight compass directions.
func compass(bearing int) string {
	dirs := []string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}
	b := ((bearing % 360) + 360) % 360
	return dirs[((b*2+45)/90)%8]
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", n)
	}
}

// turnPhrase renders an OSRM modifier as a turn verb.
func turnPhrase(modifier string) string {
	switch modifier {
	case "left", "right":
		return "Turn " + modifier
	case "slight left":
		return "Bear left"
	case "slight right":
		return "Bear right"
	case "sharp left", "sharp right":
		return "Turn " + modifier
	case "straight":
		return "Continue straight"
	case "uturn":
		return "Make a U-turn"
	default:
		return "Continue"
	}
}

// side reduces a modifier to "left" or "right", or "" when it has neither.
func side(modifier string) string {
	switch {
	case strings.Contains(modifier, "left"):
		return "left"
	case strings.Contains(modifier, "right"):
		return "right"
	default:
		return ""
	}
}

func onto(text, name string) string {
	if name == "" {
		return text
	}
	return text + " onto " + name
}

// Instruction synthesizes the guidance text of one OSRM step. Steps that
// only mark an unnamed road change produce an empty instruction so the
// tracker treats them as silent.
func Instruction(step Step) string {
	m := step.Maneuver
	name := strings.TrimSpace(step.Name)
	if name == "" {
		name = strings.TrimSpace(step.Ref)
	}

	switch m.Type {
	case "depart":
		text := "Head " + compass(m.BearingAfter)
		if name != "" {
			text += " on " + name
		}
		return text
	case "arrive":
		if s := side(m.Modifier); s != "" {
			return "Arrive at destination, on the " + s
		}
		return "Arrive at destination"
	case "new name", "notification", "use lane":
		if name == "" {
			return ""
		}
		return "Continue onto " + name
	case "continue":
		if m.Modifier == "" || m.Modifier == "straight" {
			return onto("Continue", name)
		}
		return onto("Keep "+side(m.Modifier), name)
	case "fork":
		return onto(fmt.Sprintf("Keep %s at the fork", side(m.Modifier)), name)
	case "merge":
		if s := side(m.Modifier); s != "" {
			return onto("Merge "+s, name)
		}
		return onto("Merge", name)
	case "on ramp":
		if s := side(m.Modifier); s != "" {
			return onto("Take the ramp on the "+s, name)
		}
		return onto("Take the ramp", name)
	case "off ramp":
		if s := side(m.Modifier); s != "" {
			return onto("Take the exit on the "+s, name)
		}
		return onto("Take the exit", name)
	case "end of road":
		return onto(turnPhrase(m.Modifier)+" at the end of the road", name)
	case "roundabout", "rotary":
		if m.Exit > 0 {
			return onto(fmt.Sprintf("Enter the roundabout and take the %s exit", ordinal(m.Exit)), name)
		}
		return onto("Enter the roundabout", name)
	case "roundabout turn":
		return onto("At the roundabout, "+strings.ToLower(turnPhrase(m.Modifier)), name)
	case "exit roundabout", "exit rotary":
		return onto("Exit the roundabout", name)
	default:
		return onto(turnPhrase(m.Modifier), name)
	}
}
