// Package classify decides which kind of roster line a piece of text is.
//
// There are no field delimiters in the source documents and several line
// kinds share overlapping substrings (a bid-period header and a pairing
// start both contain "EFF"/"THRU"; a fleet-totals line and a pairing
// summary both contain "FTM-"). Classification is therefore an ordered,
// short-circuiting rule list: the first matching rule wins, and the rule
// order is load-bearing.
package classify

import (
	"regexp"
	"strings"
)

// Kind tags a classified line.
type Kind int

const (
	// KindNone marks an inert line: no rule matched, the line is ignored.
	KindNone Kind = iota
	KindHeader
	KindFleetTotals
	KindPairingStart
	KindReportTime
	KindReleaseTime
	KindLeg
	KindHotel
	KindGroundTransport
	KindPairingSummary
)

var kindNames = map[Kind]string{
	KindNone:            "none",
	KindHeader:          "header",
	KindFleetTotals:     "fleet_totals",
	KindPairingStart:    "pairing_start",
	KindReportTime:      "report_time",
	KindReleaseTime:     "release_time",
	KindLeg:             "leg",
	KindHotel:           "hotel",
	KindGroundTransport: "ground_transport",
	KindPairingSummary:  "pairing_summary",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// pageRepeatMarker identifies the full header layout, repeated at the top
// of every page of the original paginated document.
const pageRepeatMarker = "1DSL"

// pairingIDMarker separates pairing-start lines from header lines; both
// carry "EFF"/"THRU".
const pairingIDMarker = " ID "

// fleetTokens are the equipment designators that can appear in a header
// line. A header without one of these is not a bid-period header.
var fleetTokens = []string{"787", "777", "737", "75E", "21N"}

// transportKeywords mark ground-transport vendor lines.
var transportKeywords = []string{"VIP", "AIRLINE", "CONNECT", "TAXI", "TOURING"}

type rule struct {
	kind  Kind
	match func(line string) bool
}

// Classifier inspects one line at a time and never mutates state, so a
// single instance is safe to share across parses.
type Classifier struct {
	rules []rule
}

// New returns a classifier with the built-in report/release markers.
func New() *Classifier {
	return NewWithMarkers(nil, nil)
}

// NewWithMarkers returns a classifier whose report-time and release-time
// detection uses the given patterns. Nil patterns fall back to the
// built-in "RPT:" / "RLS:" markers.
func NewWithMarkers(reportRe, releaseRe *regexp.Regexp) *Classifier {
	matchReport := func(line string) bool { return strings.Contains(line, "RPT:") }
	if reportRe != nil {
		matchReport = reportRe.MatchString
	}
	matchRelease := func(line string) bool { return strings.Contains(line, "RLS:") }
	if releaseRe != nil {
		matchRelease = releaseRe.MatchString
	}

	// Precedence is exact: later patterns are substrings of earlier ones,
	// so reordering breaks classification.
	return &Classifier{rules: []rule{
		{KindHeader, isHeaderLine},
		{KindFleetTotals, isFleetTotalsLine},
		{KindPairingStart, isPairingStartLine},
		{KindReportTime, matchReport},
		{KindReleaseTime, matchRelease},
		{KindLeg, IsLegLine},
		{KindHotel, func(line string) bool { return strings.Contains(line, "HTL:") }},
		{KindGroundTransport, isGroundTransportLine},
		{KindPairingSummary, func(line string) bool { return strings.Contains(line, "DAYS-") }},
	}}
}

// Classify returns the kind of the given line, or KindNone for an inert
// line. First matching rule wins.
func (c *Classifier) Classify(line string) Kind {
	for _, r := range c.rules {
		if r.match(line) {
			return r.kind
		}
	}
	return KindNone
}

// isHeaderLine matches a bid-period header: either the page-repeat marker
// of the full layout, or the compact layout's EFF/THRU plus a fleet token
// but no pairing ID.
func isHeaderLine(line string) bool {
	if strings.Contains(line, pageRepeatMarker) {
		return true
	}
	if !strings.Contains(line, "EFF") || !strings.Contains(line, "THRU") {
		return false
	}
	if strings.Contains(line, pairingIDMarker) {
		return false
	}
	for _, fleet := range fleetTokens {
		if strings.Contains(line, fleet) {
			return true
		}
	}
	return false
}

// isFleetTotalsLine matches the bid-period totals line, e.g.
// "ORD 787 FTM-13,578:02 TTL-14,387:35". Pairing summaries also carry
// FTM- but are excluded by their DAYS- marker.
func isFleetTotalsLine(line string) bool {
	return strings.Contains(line, "FTM-") &&
		strings.Contains(line, "TTL-") &&
		!strings.Contains(line, "DAYS-")
}

func isPairingStartLine(line string) bool {
	return strings.Contains(line, "EFF") && strings.Contains(line, pairingIDMarker)
}

// IsLegLine reports whether a line carries leg data: an equipment token
// (two digits plus a letter) at line start, or a bare deadhead marker.
// Leading whitespace is tolerated for .DAT exports.
func IsLegLine(line string) bool {
	s := strings.TrimLeft(line, " \t")
	if len(s) < 2 {
		return false
	}
	if len(s) >= 3 && isDigit(s[0]) && isDigit(s[1]) && isAlpha(s[2]) {
		return true
	}
	return strings.HasPrefix(s, "DH ") || strings.HasPrefix(s, "UX ")
}

func isGroundTransportLine(line string) bool {
	for _, kw := range transportKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
