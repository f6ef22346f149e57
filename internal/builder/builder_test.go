package builder

import (
	"strings"
	"testing"
)

// A minimal but complete roster: one bid period, one two-leg duty period
// inside a pairing, then the fleet totals line closing the period.
var sampleLines = []string{
	"EFF 12/30/25 THRU 01/29/26 787 CHICAGO JAN 2026 12/30/25",
	"",
	"EFF 01/02/26 THRU 01/31/26 ID O8001 - BASIC (HNL)   30 31 1 2| 3",
	"               RPT: 0820",
	" 78J  202 ORD OGG 0920 1444  26.31 B S   9.24  9.24 10.39  .00",
	"RLS: 1620  HTL: HILTON GARDEN INN 312-555-0100",
	"DAYS-  2  CRD-  12.30  FTM-  11.45  TAFB-  30.15  INT-  .00 NTE- .00  M$- 24.80  T/C- 12.30",
	"",
	"ORD 787  FTM-13,578:02   TTL-14,387:35",
}

func feed(t *testing.T, b *Builder, lines []string) {
	t.Helper()
	for i, line := range lines {
		if err := b.Consume(line, i+1); err != nil {
			t.Fatalf("Consume(line %d) = %v", i+1, err)
		}
	}
}

func TestBuildDocument(t *testing.T) {
	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, sampleLines)

	doc, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	if len(doc.Data) != 1 {
		t.Fatalf("bid periods = %d, want 1", len(doc.Data))
	}

	bp := doc.Data[0]
	if bp.BidMonthYear != "JAN 2026" {
		t.Errorf("bid_month_year = %q", bp.BidMonthYear)
	}
	if bp.Fleet != "787" {
		t.Errorf("fleet = %q", bp.Fleet)
	}
	if bp.Base != "CHICAGO" {
		t.Errorf("base = %q", bp.Base)
	}
	if bp.FTM != "13,578:02" || bp.TTL != "14,387:35" {
		t.Errorf("totals = %q / %q", bp.FTM, bp.TTL)
	}
	if bp.FTMMinutes != 13578*60+2 {
		t.Errorf("ftm_minutes = %d", bp.FTMMinutes)
	}
	if bp.EffectiveDateISO != "2025-12-30" {
		t.Errorf("effective_date_iso = %q", bp.EffectiveDateISO)
	}

	if len(bp.Pairings) != 1 {
		t.Fatalf("pairings = %d, want 1", len(bp.Pairings))
	}
	p := bp.Pairings[0]
	if p.ID != "O8001" {
		t.Errorf("id = %q", p.ID)
	}
	if p.PairingCategory != "BASIC (HNL)" {
		t.Errorf("category = %q", p.PairingCategory)
	}
	if p.IsFirstOfficer {
		t.Error("is_first_officer = true, want false")
	}
	if got, want := strings.Join(p.DateInstances, ","), "30,31,1,2"; got != want {
		t.Errorf("date_instances = %q, want %q", got, want)
	}
	if p.Days != "2" || p.Credit != "12.30" || p.MealMoney != "24.80" {
		t.Errorf("summary = days %q credit %q meal %q", p.Days, p.Credit, p.MealMoney)
	}
	if p.CreditMinutes != 12*60+30 {
		t.Errorf("credit_minutes = %d", p.CreditMinutes)
	}

	if len(p.DutyPeriods) != 1 {
		t.Fatalf("duty periods = %d, want 1", len(p.DutyPeriods))
	}
	dp := p.DutyPeriods[0]
	if dp.ReportTime != "0820" || dp.ReleaseTime != "1620" {
		t.Errorf("report/release = %q / %q", dp.ReportTime, dp.ReleaseTime)
	}
	if dp.Hotel != "HILTON GARDEN INN" || dp.HotelPhone != "312-555-0100" {
		t.Errorf("hotel = %q phone %q", dp.Hotel, dp.HotelPhone)
	}
	if dp.OriginStation == nil || *dp.OriginStation != "ORD" {
		t.Errorf("origin_station = %v", dp.OriginStation)
	}

	if len(dp.Legs) != 1 {
		t.Fatalf("legs = %d, want 1", len(dp.Legs))
	}
	leg := dp.Legs[0]
	if leg.FlightNumber != "202" || leg.DepartureStation != "ORD" || leg.ArrivalStation != "OGG" {
		t.Errorf("leg = %+v", leg)
	}
	if leg.DepartureTimeMinutes == nil || *leg.DepartureTimeMinutes != 9*60+20 {
		t.Errorf("departure_time_minutes = %v", leg.DepartureTimeMinutes)
	}
	if leg.FlightTimeMinutes != 9*60+24 {
		t.Errorf("flight_time_minutes = %d", leg.FlightTimeMinutes)
	}

	if doc.Metadata.TotalBidPeriods != 1 || doc.Metadata.TotalPairings != 1 {
		t.Errorf("metadata = %+v", doc.Metadata)
	}

	stats := b.Stats()
	if stats.TotalLines != len(sampleLines) {
		t.Errorf("total_lines = %d, want %d", stats.TotalLines, len(sampleLines))
	}
	if stats.PairingsParsed != 1 {
		t.Errorf("pairings_parsed = %d", stats.PairingsParsed)
	}
	if stats.Errors != 0 {
		t.Errorf("errors = %d", stats.Errors)
	}
}

func TestPairingStartClosesPreviousPairing(t *testing.T) {
	lines := []string{
		"EFF 12/30/25 THRU 01/29/26 787 CHICAGO JAN 2026 12/30/25",
		"EFF 01/02/26 THRU 01/31/26 ID O8001 - BASIC   2 3",
		"               RPT: 0600",
		" 78J  101 ORD SFO 0700 0930   1.15     2.30  2.30  4.00  .00",
		// No release, no summary: the next pairing start must flush
		// both the duty period and the pairing.
		"EFF 01/02/26 THRU 01/31/26 F/O ID O8002 - RESERVE   5 6",
		"DAYS-  1  CRD-  5.00  FTM-  4.30  TAFB-  9.00  INT-  .00 NTE- .00  M$- 8.00  T/C- 5.00",
	}
	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, lines)

	doc, _ := b.Finalize()
	if len(doc.Data) != 1 {
		t.Fatalf("bid periods = %d, want 1", len(doc.Data))
	}
	pairings := doc.Data[0].Pairings
	if len(pairings) != 2 {
		t.Fatalf("pairings = %d, want 2", len(pairings))
	}
	if pairings[0].ID != "O8001" || pairings[1].ID != "O8002" {
		t.Errorf("ids = %q, %q", pairings[0].ID, pairings[1].ID)
	}
	if len(pairings[0].DutyPeriods) != 1 || len(pairings[0].DutyPeriods[0].Legs) != 1 {
		t.Errorf("first pairing lost its open duty period: %+v", pairings[0].DutyPeriods)
	}
	if !pairings[1].IsFirstOfficer {
		t.Error("F/O marker not detected on second pairing")
	}
}

func TestLegBeforeReportOpensDutyPeriod(t *testing.T) {
	lines := []string{
		"EFF 01/02/26 THRU 01/31/26 ID O9001 - BASIC   1",
		" 73G  500 DEN ABQ 0800 0930   .45     1.30  1.30  3.00  .00",
		"RLS: 1015",
		"DAYS-  1  CRD-  2.00  FTM-  1.30  TAFB-  4.00  INT-  .00 NTE- .00  M$- .00  T/C- 2.00",
	}
	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, lines)

	doc, _ := b.Finalize()
	p := doc.Data[0].Pairings[0]
	if len(p.DutyPeriods) != 1 {
		t.Fatalf("duty periods = %d, want 1", len(p.DutyPeriods))
	}
	dp := p.DutyPeriods[0]
	if dp.ReportTime != "" {
		t.Errorf("report_time = %q, want empty", dp.ReportTime)
	}
	if dp.ReleaseTime != "1015" || len(dp.Legs) != 1 {
		t.Errorf("duty period = %+v", dp)
	}
}

func TestSkipOnError(t *testing.T) {
	bad := " 78J  202 ORD" // classifies as a leg but is too short to parse

	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Consume(bad, 1); err != nil {
		t.Fatalf("Consume with SkipOnError = %v, want nil", err)
	}
	if b.Stats().Errors != 1 {
		t.Errorf("errors = %d, want 1", b.Stats().Errors)
	}

	strict, err := New(Options{SkipOnError: false})
	if err != nil {
		t.Fatal(err)
	}
	if err := strict.Consume(bad, 7); err == nil {
		t.Fatal("Consume without SkipOnError = nil, want error")
	} else if !strings.Contains(err.Error(), "line 7") {
		t.Errorf("error %q does not name the line", err)
	}
}

func TestAmbiguousLegCounted(t *testing.T) {
	lines := []string{
		"EFF 01/02/26 THRU 01/31/26 ID O9100 - BASIC   1",
		"               RPT: 0700",
		// ZZ is two uppercase letters after an equipment code but is not
		// a known deadhead marker.
		" 78J ZZ  202 ORD OGG 0920 1444  26.31     9.24  9.24 10.39  .00",
		"RLS: 1500",
		"DAYS-  1  CRD-  9.30  FTM-  9.24  TAFB-  12.00  INT-  .00 NTE- .00  M$- .00  T/C- 9.30",
	}
	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, lines)

	if b.Stats().AmbiguousLegs != 1 {
		t.Errorf("ambiguous_legs = %d, want 1", b.Stats().AmbiguousLegs)
	}
	doc, _ := b.Finalize()
	leg := doc.Data[0].Pairings[0].DutyPeriods[0].Legs[0]
	if !leg.Deadhead {
		t.Error("ambiguous marker should still resolve to deadhead by priority")
	}
}

func TestCustomReportMarker(t *testing.T) {
	b, err := New(Options{
		SkipOnError:        true,
		ReportTimePattern:  `CHECK-IN\s*(\d+)`,
		ReleaseTimePattern: `CHECK-OUT\s*(\d+)`,
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := []string{
		"EFF 01/02/26 THRU 01/31/26 ID O9200 - BASIC   1",
		"   CHECK-IN 0700",
		" 73G  500 DEN ABQ 0800 0930   .45     1.30  1.30  3.00  .00",
		"   CHECK-OUT 1015",
		"DAYS-  1  CRD-  2.00  FTM-  1.30  TAFB-  4.00  INT-  .00 NTE- .00  M$- .00  T/C- 2.00",
	}
	feed(t, b, lines)

	doc, _ := b.Finalize()
	dp := doc.Data[0].Pairings[0].DutyPeriods[0]
	if dp.ReportTime != "0700" || dp.ReleaseTime != "1015" {
		t.Errorf("report/release = %q / %q", dp.ReportTime, dp.ReleaseTime)
	}
}

func TestInvalidMarkerPattern(t *testing.T) {
	if _, err := New(Options{ReportTimePattern: `RPT(`}); err == nil {
		t.Error("New with bad report pattern = nil error")
	}
	if _, err := New(Options{ReleaseTimePattern: `RLS(`}); err == nil {
		t.Error("New with bad release pattern = nil error")
	}
}

func TestSummaryColonDurations(t *testing.T) {
	// FTM and TAFB appear in colon form on some rosters; the minutes
	// fields must come out the same as for decimal form.
	lines := []string{
		"EFF 01/02/26 THRU 01/31/26 ID O9400 - BASIC   5 6",
		"               RPT: 0700",
		" 73G  500 DEN ABQ 0800 0930   .45     1.30  1.30  3.00  .00",
		"RLS: 1015",
		"DAYS-  2  CRD- 12.30  FTM- 26:31  TAFB- 85:30  INT-  .00 NTE- .00  M$- .00  T/C- 12.30",
	}
	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, lines)
	doc, err := b.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	p := doc.Data[0].Pairings[0]
	if p.FlightTime != "26:31" || p.FlightTimeMinutes != 26*60+31 {
		t.Errorf("flight time = %q (%d min)", p.FlightTime, p.FlightTimeMinutes)
	}
	if p.TimeAwayFromBase != "85:30" || p.TimeAwayFromBaseMinutes != 85*60+30 {
		t.Errorf("tafb = %q (%d min)", p.TimeAwayFromBase, p.TimeAwayFromBaseMinutes)
	}
}

func TestMarkerPatternWithoutGroupRejected(t *testing.T) {
	// A marker without a capture group has no HHMM value to extract;
	// accepting it would blow up on the first matching line.
	if _, err := New(Options{SkipOnError: true, ReportTimePattern: `RPT:`}); err == nil {
		t.Error("New accepted a group-less report pattern")
	}
	if _, err := New(Options{SkipOnError: true, ReleaseTimePattern: `RLS:`}); err == nil {
		t.Error("New accepted a group-less release pattern")
	}
}

func TestStrictValidationFailsButReturnsDocument(t *testing.T) {
	lines := []string{
		// Pairing with no summary fields and an empty duty period: the
		// structural validator flags the missing flight time.
		"EFF 01/02/26 THRU 01/31/26 ID O9300 - BASIC   1",
		"               RPT: 0700",
		"RLS: 0800",
	}
	b, err := New(Options{SkipOnError: true, StrictValidation: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, lines)

	doc, err := b.Finalize()
	if err == nil {
		t.Fatal("Finalize() = nil error under strict validation")
	}
	if doc == nil || len(doc.Data) != 1 {
		t.Fatal("strict validation must still return the parsed tree")
	}
	if b.ValidationReport() == nil {
		t.Error("ValidationReport() = nil after Finalize")
	}
}

func TestMultipleBidPeriods(t *testing.T) {
	lines := []string{
		"EFF 12/30/25 THRU 01/29/26 787 CHICAGO JAN 2026 12/30/25",
		"EFF 01/02/26 THRU 01/31/26 ID O8001 - BASIC   1",
		"               RPT: 0820",
		" 78J  202 ORD OGG 0920 1444  26.31     9.24  9.24 10.39  .00",
		"RLS: 1620",
		"DAYS-  1  CRD-  9.30  FTM-  9.24  TAFB-  12.00  INT-  .00 NTE- .00  M$- .00  T/C- 9.30",
		"ORD 787  FTM-13,578:02   TTL-14,387:35",
		"EFF 01/30/26 THRU 02/26/26 777 DENVER  FEB 2026 01/30/26",
		"EFF 02/01/26 THRU 02/26/26 ID D1001 - BASIC   4",
		"               RPT: 0600",
		" 77W  900 DEN LHR 0700 2100   1.00     9.00  9.00 15.00  .00",
		"RLS: 2200",
		"DAYS-  1  CRD-  9.00  FTM-  9.00  TAFB-  16.00  INT-  9.00 NTE- .00  M$- .00  T/C- 9.00",
		"DEN 777  FTM-11,200:00   TTL-12,100:30",
	}
	b, err := New(Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	feed(t, b, lines)

	doc, err := b.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Data) != 2 {
		t.Fatalf("bid periods = %d, want 2", len(doc.Data))
	}
	if doc.Data[0].Fleet != "787" || doc.Data[1].Fleet != "777" {
		t.Errorf("fleets = %q, %q", doc.Data[0].Fleet, doc.Data[1].Fleet)
	}
	if doc.Metadata.TotalPairings != 2 {
		t.Errorf("total_pairings = %d", doc.Metadata.TotalPairings)
	}
}
