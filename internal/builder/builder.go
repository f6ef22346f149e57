// Package builder assembles a roster document from classified lines.
//
// The builder is a sequential state machine: lines must arrive in source
// order, because transitions depend on it (a pairing-start line implicitly
// closes the previous pairing). Every "current" entity reference lives in
// an explicit parserState owned by the builder instance, so independent
// parses never share state; use a fresh builder per document.
package builder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"pairing_parser/internal/classify"
	"pairing_parser/internal/fixedfield"
	"pairing_parser/internal/legline"
	"pairing_parser/internal/roster"
	"pairing_parser/internal/validate"
)

var (
	// ORD 787 FTM-13,578:02 TTL-14,387:35
	totalsFleetRe = regexp.MustCompile(`([A-Z]{3})\s+([0-9]{2,3}[A-Z]?)\s+FTM-`)
	totalsValueRe = regexp.MustCompile(`(FTM|TTL)-\s*(\d+(?:,\d+)*:\d{2})`)

	// EFF 01/02/26 THRU 01/31/26 F/O ID O8001 - BASIC (HNL)
	pairingStartRe = regexp.MustCompile(
		`EFF (\d{2}/\d{2}/\d{2}) THRU (\d{2}/\d{2}/\d{2}).*?(F/O)?\s*ID (\w+)\s+-\s+(\w+)(?:\s+\((\w+)\))?`)

	// Trailing calendar fragment: 1-2 digit day-of-month tokens.
	calendarDayRe = regexp.MustCompile(`\b(\d{1,2})\b`)

	// HTL: HILTON GARDEN INN 312-555-0100 OP=> 800-555-0199
	hotelRe     = regexp.MustCompile(`HTL:\s*([A-Z\s]+?)\s+(\d[\d\-]+)`)
	hotelOpRe   = regexp.MustCompile(`OP=>\s*([\d\-]+)`)
	transportRe = regexp.MustCompile(`(?i)(VIP|AIRLINE|CONNECT|TAXI|TOURING)\s+[A-Z\s]+\s*(\d[\d\-]+)`)

	// DAYS- 2 CRD- 12.30 FTM- 11.45 TAFB- 30.15 ...
	summaryDaysRe   = regexp.MustCompile(`DAYS-\s*(\d+)`)
	summaryCreditRe = regexp.MustCompile(`CRD-\s*([\d.]+)`)
	summaryFTMRe    = regexp.MustCompile(`FTM-\s*([\d.:]+)`)
	summaryTAFBRe   = regexp.MustCompile(`TAFB-\s*([\d.:]+)`)
	summaryIntlRe   = regexp.MustCompile(`INT-\s*([\d.]+)`)
	summaryNTERe    = regexp.MustCompile(`NTE-\s*([\d.]+)`)
	summaryMealRe   = regexp.MustCompile(`M\$-\s*([\d.]+)`)
	summaryTCRe     = regexp.MustCompile(`T/C-\s*([\d.]+)`)
)

const (
	defaultReportPattern  = `RPT:\s*(\d+)`
	defaultReleasePattern = `RLS:\s*(\d+)`
)

// Options configures a builder.
type Options struct {
	// SkipOnError keeps consuming after a line-parse error; the line is
	// skipped and counted. When false, Consume returns the error.
	SkipOnError bool

	// StrictValidation makes Finalize fail on the first structural
	// violation instead of collecting warnings.
	StrictValidation bool

	// ReportTimePattern and ReleaseTimePattern override the built-in
	// report/release markers. Each needs one capture group for the
	// HHMM value. Empty strings use the defaults.
	ReportTimePattern  string
	ReleaseTimePattern string
}

// parserState holds the in-progress entities. Exactly one of each level
// is "current" at a time; nil means that level is closed.
type parserState struct {
	bidPeriod  *roster.BidPeriod
	pairing    *roster.Pairing
	dutyPeriod *roster.DutyPeriod
}

// Builder consumes classified lines and produces a roster document.
// Not safe for concurrent use; parsing is inherently sequential.
type Builder struct {
	opts       Options
	classifier *classify.Classifier
	reportRe   *regexp.Regexp
	releaseRe  *regexp.Regexp

	state  parserState
	doc    roster.Document
	stats  roster.Stats
	report *validate.Report
}

// New creates a builder for one document.
func New(opts Options) (*Builder, error) {
	reportPat := opts.ReportTimePattern
	releasePat := opts.ReleaseTimePattern

	var reportRe, releaseRe *regexp.Regexp
	var err error
	if reportPat == "" {
		reportRe = regexp.MustCompile(defaultReportPattern)
	} else if reportRe, err = regexp.Compile(reportPat); err != nil {
		return nil, fmt.Errorf("report time pattern: %w", err)
	} else if reportRe.NumSubexp() < 1 {
		return nil, fmt.Errorf("report time pattern %q needs a capture group for the HHMM value", reportPat)
	}
	if releasePat == "" {
		releaseRe = regexp.MustCompile(defaultReleasePattern)
	} else if releaseRe, err = regexp.Compile(releasePat); err != nil {
		return nil, fmt.Errorf("release time pattern: %w", err)
	} else if releaseRe.NumSubexp() < 1 {
		return nil, fmt.Errorf("release time pattern %q needs a capture group for the HHMM value", releasePat)
	}

	var classifier *classify.Classifier
	if reportPat == "" && releasePat == "" {
		classifier = classify.New()
	} else {
		classifier = classify.NewWithMarkers(reportRe, releaseRe)
	}

	return &Builder{
		opts:       opts,
		classifier: classifier,
		reportRe:   reportRe,
		releaseRe:  releaseRe,
	}, nil
}

// Consume feeds one line into the state machine. A failed line never
// leaves the state partially mutated: the error is counted, the line
// skipped, and (unless SkipOnError is false) parsing continues.
func (b *Builder) Consume(line string, lineNumber int) error {
	b.stats.TotalLines++

	var err error
	switch b.classifier.Classify(line) {
	case classify.KindHeader:
		b.handleHeader(line)
	case classify.KindFleetTotals:
		b.handleFleetTotals(line)
	case classify.KindPairingStart:
		b.handlePairingStart(line)
	case classify.KindReportTime:
		b.handleReportTime(line)
	case classify.KindReleaseTime:
		b.handleReleaseTime(line)
	case classify.KindLeg:
		err = b.handleLeg(line, lineNumber)
	case classify.KindHotel:
		b.handleHotel(line)
	case classify.KindGroundTransport:
		b.handleGroundTransport(line)
	case classify.KindPairingSummary:
		b.handlePairingSummary(line)
	case classify.KindNone:
		// Inert line.
	}

	if err != nil {
		b.stats.Errors++
		snippet := line
		if len(snippet) > 80 {
			snippet = snippet[:80]
		}
		log.Error().Int("line", lineNumber).Str("text", snippet).Err(err).Msg("line parse failed")
		if !b.opts.SkipOnError {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}
	}
	return nil
}

// Finalize flushes any open entities in duty-period, pairing, bid-period
// order, attaches metadata, and validates the tree. The document is
// always returned, even when strict validation fails: the caller gets
// the best-effort tree plus the error.
func (b *Builder) Finalize() (*roster.Document, error) {
	b.finalizeDutyPeriod()
	b.finalizePairing()
	b.finalizeBidPeriod()

	b.doc.Metadata.TotalBidPeriods = len(b.doc.Data)
	b.doc.Metadata.TotalPairings = b.doc.TotalPairings()

	v := validate.New(b.opts.StrictValidation)
	report, err := v.ValidateDocument(&b.doc)
	b.report = report
	b.stats.Warnings += len(report.Issues)

	log.Info().
		Int("lines", b.stats.TotalLines).
		Int("pairings", b.stats.PairingsParsed).
		Int("errors", b.stats.Errors).
		Msg("parse complete")

	if err != nil {
		return &b.doc, err
	}
	return &b.doc, nil
}

// Stats returns the running parse counters.
func (b *Builder) Stats() roster.Stats {
	return b.stats
}

// ValidationReport returns the report produced by Finalize, or nil before
// finalization.
func (b *Builder) ValidationReport() *validate.Report {
	return b.report
}

// Document exposes the partially-built document; useful for inspecting a
// parse that was stopped early.
func (b *Builder) Document() *roster.Document {
	return &b.doc
}

// handleHeader opens a bid period if none is open. Headers repeat at the
// top of every page of the same period, so repeats are no-ops apart from
// refreshing the extracted fields.
func (b *Builder) handleHeader(line string) {
	if b.state.bidPeriod == nil {
		b.state.bidPeriod = &roster.BidPeriod{}
	}

	layout := fixedfield.CompactHeader
	if strings.Contains(line, "1DSL") {
		layout = fixedfield.FullHeader
	}
	h := fixedfield.ExtractHeader(line, layout)
	bp := b.state.bidPeriod
	bp.BidMonthYear = h.BidMonthYear
	bp.Fleet = h.Fleet
	bp.Base = h.Base
	bp.EffectiveDate = h.EffectiveDate
	bp.ThroughDate = h.ThroughDate

	log.Debug().Str("month", bp.BidMonthYear).Str("fleet", bp.Fleet).Str("base", bp.Base).
		Msg("bid period header")
}

// handleFleetTotals records FTM/TTL and the canonical fleet code, then
// closes the bid period. The totals line is the authoritative fleet
// source; the header's fleet token is a weak signal and loses.
func (b *Builder) handleFleetTotals(line string) {
	bp := b.state.bidPeriod
	if bp == nil {
		return
	}

	if m := totalsFleetRe.FindStringSubmatch(line); m != nil {
		bp.Fleet = m[2]
	}

	values := totalsValueRe.FindAllStringSubmatch(line, -1)
	for _, m := range values {
		switch m[1] {
		case "FTM":
			bp.FTM = m[2]
		case "TTL":
			bp.TTL = m[2]
		}
	}

	b.finalizeBidPeriod()
}

// handlePairingStart closes any open pairing, then opens a new one from
// the structured EFF ... ID ... pattern. Optional capture groups (F/O
// marker, parenthetical note) may be absent without failing the match.
func (b *Builder) handlePairingStart(line string) {
	if b.state.pairing != nil {
		b.finalizeDutyPeriod()
		b.finalizePairing()
	}

	p := &roster.Pairing{}
	b.state.pairing = p

	m := pairingStartRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	p.EffectiveDate = m[1]
	p.ThroughDate = m[2]
	p.IsFirstOfficer = m[3] != ""
	p.ID = m[4]
	p.PairingCategory = m[5]
	if m[6] != "" {
		p.PairingCategory += " (" + m[6] + ")"
	}

	// Calendar day instances trail the category, after the closing paren
	// when a note is present, and stop at the "|" column divider.
	calendar := line
	if i := strings.LastIndexByte(line, ')'); i >= 0 {
		calendar = line[i+1:]
	} else if i := strings.Index(line, p.PairingCategory); i >= 0 {
		calendar = line[i+len(p.PairingCategory):]
	}
	if i := strings.IndexByte(calendar, '|'); i >= 0 {
		calendar = calendar[:i]
	}
	for _, dm := range calendarDayRe.FindAllStringSubmatch(calendar, -1) {
		p.DateInstances = append(p.DateInstances, dm[1])
	}

	log.Debug().Str("id", p.ID).Str("category", p.PairingCategory).Msg("pairing start")
}

// handleReportTime closes any open duty period and opens a new one.
func (b *Builder) handleReportTime(line string) {
	b.finalizeDutyPeriod()
	dp := &roster.DutyPeriod{}
	if m := b.reportRe.FindStringSubmatch(line); m != nil {
		dp.ReportTime = m[1]
	}
	b.state.dutyPeriod = dp
}

// handleReleaseTime sets the release time, picks up hotel info that the
// compact format puts on the same line, and closes the duty period.
func (b *Builder) handleReleaseTime(line string) {
	dp := b.state.dutyPeriod
	if dp == nil {
		return
	}
	if m := b.releaseRe.FindStringSubmatch(line); m != nil {
		dp.ReleaseTime = m[1]
	}
	if strings.Contains(line, "HTL:") {
		b.handleHotel(line)
	}
	b.finalizeDutyPeriod()
}

// handleLeg parses and appends a leg, auto-creating a duty period if a
// leg arrives before its report line (should not occur in well-formed
// input).
func (b *Builder) handleLeg(line string, lineNumber int) error {
	leg, ambiguous, err := legline.Parse(line)
	if err != nil {
		return err
	}
	if ambiguous {
		b.stats.AmbiguousLegs++
		log.Warn().Int("line", lineNumber).Str("text", strings.TrimSpace(line)).
			Msg("leg line matched multiple layouts; resolved by priority order")
	}

	if b.state.dutyPeriod == nil {
		b.state.dutyPeriod = &roster.DutyPeriod{}
	}
	b.state.dutyPeriod.Legs = append(b.state.dutyPeriod.Legs, leg)
	return nil
}

func (b *Builder) handleHotel(line string) {
	dp := b.state.dutyPeriod
	if dp == nil {
		return
	}
	if m := hotelRe.FindStringSubmatch(line); m != nil {
		dp.Hotel = strings.TrimSpace(m[1])
		dp.HotelPhone = m[2]
	}
	if m := hotelOpRe.FindStringSubmatch(line); m != nil {
		if dp.HotelPhone != "" {
			dp.HotelPhone += " OP=> " + m[1]
		} else {
			dp.HotelPhone = "OP=> " + m[1]
		}
	}
}

func (b *Builder) handleGroundTransport(line string) {
	dp := b.state.dutyPeriod
	if dp == nil {
		return
	}
	if m := transportRe.FindString(line); m != "" {
		dp.GroundTransport = strings.TrimSpace(m)
	}
}

// handlePairingSummary parses the seven summary metrics and closes the
// pairing. Each metric is matched independently; a missing one stays
// empty.
func (b *Builder) handlePairingSummary(line string) {
	p := b.state.pairing
	if p == nil {
		return
	}

	if m := summaryDaysRe.FindStringSubmatch(line); m != nil {
		p.Days = m[1]
	}
	if m := summaryCreditRe.FindStringSubmatch(line); m != nil {
		p.Credit = m[1]
	}
	if m := summaryFTMRe.FindStringSubmatch(line); m != nil {
		p.FlightTime = m[1]
	}
	if m := summaryTAFBRe.FindStringSubmatch(line); m != nil {
		p.TimeAwayFromBase = m[1]
	}
	if m := summaryIntlRe.FindStringSubmatch(line); m != nil {
		p.InternationalFlightTime = m[1]
	}
	if m := summaryNTERe.FindStringSubmatch(line); m != nil {
		p.NTE = m[1]
	}
	if m := summaryMealRe.FindStringSubmatch(line); m != nil {
		p.MealMoney = m[1]
	}
	if m := summaryTCRe.FindStringSubmatch(line); m != nil {
		p.TC = m[1]
	}

	b.finalizeDutyPeriod()
	b.finalizePairing()
}

// finalizeDutyPeriod appends the open duty period to the current pairing.
// A duty period with no enclosing pairing has nowhere to go and is held
// until a pairing exists or dropped at flush.
func (b *Builder) finalizeDutyPeriod() {
	if b.state.dutyPeriod == nil {
		return
	}
	if b.state.pairing == nil {
		b.state.dutyPeriod = nil
		return
	}
	b.state.pairing.DutyPeriods = append(b.state.pairing.DutyPeriods, *b.state.dutyPeriod)
	b.state.dutyPeriod = nil
}

// finalizePairing computes the pairing's derived fields (including
// layover/origin stations, which need the complete duty-period list) and
// appends it to the current bid period, opening an anonymous one if the
// document never produced a header.
func (b *Builder) finalizePairing() {
	if b.state.pairing == nil {
		return
	}
	if b.state.bidPeriod == nil {
		b.state.bidPeriod = &roster.BidPeriod{}
	}

	p := b.state.pairing
	p.Finish()
	b.state.bidPeriod.Pairings = append(b.state.bidPeriod.Pairings, *p)
	b.stats.PairingsParsed++
	b.state.pairing = nil

	log.Debug().Str("id", p.ID).Int("duty_periods", len(p.DutyPeriods)).Msg("pairing finalized")
}

func (b *Builder) finalizeBidPeriod() {
	if b.state.bidPeriod == nil {
		return
	}
	bp := b.state.bidPeriod
	bp.Finish()
	b.doc.Data = append(b.doc.Data, *bp)
	b.state.bidPeriod = nil

	log.Debug().Str("month", bp.BidMonthYear).Int("pairings", len(bp.Pairings)).Msg("bid period finalized")
}
