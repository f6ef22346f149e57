// Package legline maps the whitespace tokens of a leg line onto named leg
// fields.
//
// The token layout varies along two independent axes: how a deadhead is
// encoded (normal flight, "DH"/"UX" marker after the equipment code, bare
// "DH"/"UX" with no equipment code, or a lone "D" in the meal-code slot)
// and whether a service code shifts the duration block right by one.
// Disambiguation follows a fixed priority order; two variants can be
// locally indistinguishable, in which case the line is flagged for manual
// review rather than silently resolved.
package legline

import (
	"fmt"
	"strings"

	"pairing_parser/internal/roster"
	"pairing_parser/internal/timecode"
)

// minTokens is the smallest token count that can still be a leg:
// flight number, two stations, two clock times, and one duration.
const minTokens = 6

// Parse maps a leg line's tokens onto a Leg. The second return is true
// when the line satisfied more than one layout rule's preconditions and
// was resolved by priority order alone; callers should surface those for
// review. Anything after a "|" (trailing calendar fragment) is discarded.
func Parse(line string) (roster.Leg, bool, error) {
	var leg roster.Leg

	main := line
	if i := strings.IndexByte(line, '|'); i >= 0 {
		main = line[:i]
	}
	fields := strings.Fields(main)
	if len(fields) < minTokens {
		return leg, false, fmt.Errorf("leg line has %d tokens, want at least %d", len(fields), minTokens)
	}

	ambiguous := false
	idx := 0

	switch {
	case isDeadheadMarker(fields[0]):
		// Bare "DH"/"UX" deadhead: no equipment code at all.
		leg.Deadhead = true
		leg.Equipment = nil
		idx = 1
	case isEquipmentCode(fields[0]):
		eq := fields[0]
		leg.Equipment = &eq
		idx = 1
		if isDeadheadMarker(fields[idx]) {
			// Equipment followed by an explicit marker, e.g. "20S DH 1124 ...".
			// A two-letter token here that is not a known carrier marker
			// satisfies both the deadhead rule and the shifted-service-code
			// rule; deadhead wins by priority but the line is flagged.
			if fields[idx] != "DH" && fields[idx] != "UX" {
				ambiguous = true
			}
			leg.Deadhead = true
			idx++
		}
	default:
		return leg, false, fmt.Errorf("unrecognized leg layout: first token %q", fields[0])
	}

	// Fixed positional block: flight number, stations, clock times.
	if len(fields) < idx+5 {
		return leg, ambiguous, fmt.Errorf("leg line truncated after token %d", idx)
	}
	leg.FlightNumber = fields[idx]
	leg.DepartureStation = fields[idx+1]
	leg.ArrivalStation = fields[idx+2]
	leg.DepartureTime = fields[idx+3]
	leg.ArrivalTime = fields[idx+4]
	idx += 5

	// Ground time is duration-shaped when present; a single letter here
	// means the ground time was omitted and the codes start immediately.
	if idx < len(fields) && isDurationToken(fields[idx]) {
		leg.GroundTime = timecode.NormalizeDuration(fields[idx])
		idx++
	} else {
		leg.GroundTime = "0"
	}

	// Zero to three single-letter meal/service codes, collected greedily.
	// A lone "D" also satisfies the deadhead-marker-in-position rule; the
	// meal-code reading wins by priority, but only with a flag.
	var codes []string
	for idx < len(fields) && len(codes) < 3 {
		f := fields[idx]
		if len(f) != 1 || f[0] < 'A' || f[0] > 'Z' {
			break
		}
		if f == "D" && !leg.Deadhead {
			ambiguous = true
		}
		codes = append(codes, f)
		idx++
	}
	if len(codes) > 0 {
		leg.MealCode = strings.Join(codes, " ")
	}

	// Duration block: flight time, accumulated flight time, duty time.
	leg.FlightTime = "0"
	leg.AccumulatedFlightTime = "0"
	leg.DutyTime = "0"
	leg.DeadheadCredit = "0"
	if idx < len(fields) {
		leg.FlightTime = timecode.NormalizeDuration(fields[idx])
		idx++
	}
	if idx < len(fields) {
		leg.AccumulatedFlightTime = timecode.NormalizeDuration(fields[idx])
		idx++
	}
	if idx < len(fields) {
		leg.DutyTime = timecode.NormalizeDuration(fields[idx])
		idx++
	}

	// Deadhead credit appears on some deadhead legs only.
	if idx < len(fields) && isDurationToken(fields[idx]) {
		leg.DeadheadCredit = timecode.NormalizeDuration(fields[idx])
		idx++
	}

	// Residual tokens are calendar fragments; discard.

	return leg, ambiguous, nil
}

// isEquipmentCode matches the "two digits plus a letter" equipment prefix,
// e.g. "78J", "73G", "20S".
func isEquipmentCode(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	return isDigit(tok[0]) && isDigit(tok[1]) && isUpper(tok[2])
}

// isDeadheadMarker matches a two-letter uppercase carrier/deadhead code.
func isDeadheadMarker(tok string) bool {
	return len(tok) == 2 && isUpper(tok[0]) && isUpper(tok[1])
}

// isDurationToken matches anything duration-shaped: "2:15", "26.31",
// ".00", or a bare "0".
func isDurationToken(tok string) bool {
	if tok == "" {
		return false
	}
	hasDigit := false
	for i := 0; i < len(tok); i++ {
		switch {
		case isDigit(tok[i]):
			hasDigit = true
		case tok[i] == ':' || tok[i] == '.':
		default:
			return false
		}
	}
	return hasDigit || tok == ".00"
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
