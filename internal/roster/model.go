// Package roster defines the document tree produced by parsing a pairing
// roster: BidPeriod -> Pairing -> DutyPeriod -> Leg.
//
// Raw fields keep the exact text the document carried (HHMM clocks, H.MM
// decimal durations, MM/DD/YY dates). Derived fields (ISO dates, minute
// values, formatted clocks) are plain values computed once at entity
// finalization, never recomputed lazily, so the tree serializes to JSON
// with no behavior attached.
package roster

import (
	"pairing_parser/internal/timecode"
	"strconv"
)

// Leg is a single flight segment or deadhead repositioning within a duty
// period. Equipment is nil for bare deadhead markers ("UX 3707 ..."),
// which carry no equipment code.
type Leg struct {
	Equipment             *string `json:"equipment"`
	Deadhead              bool    `json:"deadhead"`
	FlightNumber          string  `json:"flight_number"`
	DepartureStation      string  `json:"departure_station"`
	ArrivalStation        string  `json:"arrival_station"`
	DepartureTime         string  `json:"departure_time"` // raw HHMM
	ArrivalTime           string  `json:"arrival_time"`   // raw HHMM
	GroundTime            string  `json:"ground_time"`
	MealCode              string  `json:"meal_code,omitempty"`
	FlightTime            string  `json:"flight_time"`
	AccumulatedFlightTime string  `json:"accumulated_flight_time"`
	DutyTime              string  `json:"duty_time"`
	DeadheadCredit        string  `json:"d_c"`

	// Derived at finalization.
	DepartureTimeFormatted       string `json:"departure_time_formatted"`
	ArrivalTimeFormatted         string `json:"arrival_time_formatted"`
	DepartureTimeMinutes         *int   `json:"departure_time_minutes"`
	ArrivalTimeMinutes           *int   `json:"arrival_time_minutes"`
	GroundTimeMinutes            int    `json:"ground_time_minutes"`
	FlightTimeMinutes            int    `json:"flight_time_minutes"`
	AccumulatedFlightTimeMinutes int    `json:"accumulated_flight_time_minutes"`
	DutyTimeMinutes              int    `json:"duty_time_minutes"`
	DeadheadCreditMinutes        int    `json:"d_c_minutes"`
}

// Finish computes the leg's derived fields. Idempotent.
func (l *Leg) Finish() {
	l.DepartureTimeFormatted = timecode.FormatClock(l.DepartureTime)
	l.ArrivalTimeFormatted = timecode.FormatClock(l.ArrivalTime)
	l.DepartureTimeMinutes = clockMinutes(l.DepartureTime)
	l.ArrivalTimeMinutes = clockMinutes(l.ArrivalTime)
	l.GroundTimeMinutes = timecode.DurationToMinutes(l.GroundTime)
	l.FlightTimeMinutes = timecode.DurationToMinutes(l.FlightTime)
	l.AccumulatedFlightTimeMinutes = timecode.DurationToMinutes(l.AccumulatedFlightTime)
	l.DutyTimeMinutes = timecode.DurationToMinutes(l.DutyTime)
	l.DeadheadCreditMinutes = timecode.DurationToMinutes(l.DeadheadCredit)
}

// DutyPeriod is one working stretch of a pairing, bounded by report and
// release times. LayoverStation and OriginStation are set only after the
// owning pairing is fully parsed (see ComputeStations), never
// incrementally.
type DutyPeriod struct {
	ReportTime      string  `json:"report_time"` // raw HHMM
	Legs            []Leg   `json:"legs"`
	ReleaseTime     string  `json:"release_time"` // raw HHMM
	Hotel           string  `json:"hotel,omitempty"`
	HotelPhone      string  `json:"hotel_phone,omitempty"`
	GroundTransport string  `json:"ground_transport,omitempty"`
	LayoverStation  *string `json:"layover_station"`
	OriginStation   *string `json:"origin_station"`

	// Derived at finalization.
	ReportTimeFormatted  string `json:"report_time_formatted"`
	ReleaseTimeFormatted string `json:"release_time_formatted"`
	ReportTimeMinutes    *int   `json:"report_time_minutes"`
	ReleaseTimeMinutes   *int   `json:"release_time_minutes"`
}

// Finish computes the duty period's derived fields, including those of its
// legs. Idempotent.
func (d *DutyPeriod) Finish() {
	d.ReportTimeFormatted = timecode.FormatClock(d.ReportTime)
	d.ReleaseTimeFormatted = timecode.FormatClock(d.ReleaseTime)
	d.ReportTimeMinutes = clockMinutes(d.ReportTime)
	d.ReleaseTimeMinutes = clockMinutes(d.ReleaseTime)
	for i := range d.Legs {
		d.Legs[i].Finish()
	}
}

// Pairing is a work sequence of one or more duty periods. IDs repeat
// across bid periods; a pairing is only unique within its parent.
type Pairing struct {
	ID              string       `json:"id"`
	PairingCategory string       `json:"pairing_category"`
	IsFirstOfficer  bool         `json:"is_first_officer"`
	EffectiveDate   string       `json:"effective_date"` // raw MM/DD/YY
	ThroughDate     string       `json:"through_date"`   // raw MM/DD/YY
	DateInstances   []string     `json:"date_instances"`
	DutyPeriods     []DutyPeriod `json:"duty_periods"`

	// Summary fields, raw duration strings from the DAYS- line. Mostly
	// decimal form; FlightTime and TimeAwayFromBase may be colon form.
	Days                    string `json:"days"`
	Credit                  string `json:"credit"`
	FlightTime              string `json:"flight_time"`
	TimeAwayFromBase        string `json:"time_away_from_base"`
	InternationalFlightTime string `json:"international_flight_time"`
	NTE                     string `json:"nte"`
	MealMoney               string `json:"meal_money"`
	TC                      string `json:"t_c"`

	// Derived at finalization.
	EffectiveDateISO               string `json:"effective_date_iso"`
	ThroughDateISO                 string `json:"through_date_iso"`
	DaysCount                      int    `json:"days_count"`
	CreditMinutes                  int    `json:"credit_minutes"`
	FlightTimeMinutes              int    `json:"flight_time_minutes"`
	TimeAwayFromBaseMinutes        int    `json:"time_away_from_base_minutes"`
	InternationalFlightTimeMinutes int    `json:"international_flight_time_minutes"`
	NTEMinutes                     int    `json:"nte_minutes"`
	TCMinutes                      int    `json:"t_c_minutes"`
}

// Finish computes all derived fields of the pairing and its duty periods,
// then assigns layover and origin stations. Idempotent; must only be
// called once the pairing is fully parsed, since station assignment
// depends on trip length and duty-period position.
func (p *Pairing) Finish() {
	p.EffectiveDateISO = timecode.DateToISO(p.EffectiveDate)
	p.ThroughDateISO = timecode.DateToISO(p.ThroughDate)
	p.DaysCount, _ = strconv.Atoi(p.Days)
	p.CreditMinutes = timecode.DecimalDurationToMinutes(p.Credit)
	// FTM and TAFB show up in colon form on some rosters.
	p.FlightTimeMinutes = timecode.AnyDurationToMinutes(p.FlightTime)
	p.TimeAwayFromBaseMinutes = timecode.AnyDurationToMinutes(p.TimeAwayFromBase)
	p.InternationalFlightTimeMinutes = timecode.DecimalDurationToMinutes(p.InternationalFlightTime)
	p.NTEMinutes = timecode.DecimalDurationToMinutes(p.NTE)
	p.TCMinutes = timecode.DecimalDurationToMinutes(p.TC)
	for i := range p.DutyPeriods {
		p.DutyPeriods[i].Finish()
	}
	ComputeStations(p)
}

// BidPeriod is a month-long roster period for one fleet/base combination,
// holding all its pairings in document order.
type BidPeriod struct {
	BidMonthYear  string    `json:"bid_month_year"`
	Fleet         string    `json:"fleet"`
	Base          string    `json:"base"`
	EffectiveDate string    `json:"effective_date"` // raw MM/DD/YY
	ThroughDate   string    `json:"through_date"`   // raw MM/DD/YY
	Pairings      []Pairing `json:"pairings"`
	FTM           string    `json:"ftm"` // raw H,HHH:MM
	TTL           string    `json:"ttl"` // raw H,HHH:MM

	// Derived at finalization.
	EffectiveDateISO string `json:"effective_date_iso"`
	ThroughDateISO   string `json:"through_date_iso"`
	FTMMinutes       int    `json:"ftm_minutes"`
	TTLMinutes       int    `json:"ttl_minutes"`
}

// Finish computes the bid period's derived fields. Idempotent. Pairings
// have already been finished individually when they were finalized.
func (b *BidPeriod) Finish() {
	b.EffectiveDateISO = timecode.DateToISO(b.EffectiveDate)
	b.ThroughDateISO = timecode.DateToISO(b.ThroughDate)
	b.FTMMinutes = timecode.CommaDurationToMinutes(b.FTM)
	b.TTLMinutes = timecode.CommaDurationToMinutes(b.TTL)
}

// Metadata describes the parse that produced a document.
type Metadata struct {
	SourceFile            string  `json:"source_file,omitempty"`
	LineCount             int     `json:"line_count,omitempty"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds,omitempty"`
	TotalBidPeriods       int     `json:"total_bid_periods"`
	TotalPairings         int     `json:"total_pairings"`
}

// Document is the root of the parsed tree.
type Document struct {
	Data     []BidPeriod `json:"data"`
	Metadata Metadata    `json:"metadata"`
}

// TotalPairings counts pairings across all bid periods.
func (d *Document) TotalPairings() int {
	n := 0
	for i := range d.Data {
		n += len(d.Data[i].Pairings)
	}
	return n
}

// Stats counts what happened during a parse.
type Stats struct {
	TotalLines     int `json:"total_lines"`
	PairingsParsed int `json:"pairings_parsed"`
	Errors         int `json:"errors"`
	Warnings       int `json:"warnings"`
	AmbiguousLegs  int `json:"ambiguous_legs"`
}

func clockMinutes(hhmm string) *int {
	m, err := timecode.ClockToMinutes(hhmm)
	if err != nil {
		return nil
	}
	return &m
}
