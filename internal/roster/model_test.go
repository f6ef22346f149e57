package roster

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLegFinish(t *testing.T) {
	eq := "78J"
	l := Leg{
		Equipment:             &eq,
		FlightNumber:          "202",
		DepartureStation:      "ORD",
		ArrivalStation:        "OGG",
		DepartureTime:         "0920",
		ArrivalTime:           "1444",
		GroundTime:            "26:31",
		FlightTime:            "9:24",
		AccumulatedFlightTime: "9:24",
		DutyTime:              "10:39",
		DeadheadCredit:        "0",
	}

	l.Finish()

	if l.DepartureTimeFormatted != "09:20" {
		t.Errorf("DepartureTimeFormatted = %q, want 09:20", l.DepartureTimeFormatted)
	}
	if l.DepartureTimeMinutes == nil || *l.DepartureTimeMinutes != 560 {
		t.Errorf("DepartureTimeMinutes = %v, want 560", l.DepartureTimeMinutes)
	}
	if l.ArrivalTimeMinutes == nil || *l.ArrivalTimeMinutes != 884 {
		t.Errorf("ArrivalTimeMinutes = %v, want 884", l.ArrivalTimeMinutes)
	}
	if l.FlightTimeMinutes != 564 {
		t.Errorf("FlightTimeMinutes = %d, want 564", l.FlightTimeMinutes)
	}
	if l.DutyTimeMinutes != 639 {
		t.Errorf("DutyTimeMinutes = %d, want 639", l.DutyTimeMinutes)
	}
}

func TestLegFinishInvalidClock(t *testing.T) {
	l := Leg{DepartureTime: "26XX", ArrivalTime: ""}
	l.Finish()

	if l.DepartureTimeMinutes != nil {
		t.Errorf("DepartureTimeMinutes = %v, want nil", l.DepartureTimeMinutes)
	}
	if l.DepartureTimeFormatted != "" {
		t.Errorf("DepartureTimeFormatted = %q, want empty", l.DepartureTimeFormatted)
	}
}

func TestPairingFinish(t *testing.T) {
	p := Pairing{
		ID:               "O8001",
		EffectiveDate:    "01/02/26",
		ThroughDate:      "01/31/26",
		Days:             "2",
		Credit:           "12.30",
		FlightTime:       "11.45",
		TimeAwayFromBase: "30.15",
		DutyPeriods: []DutyPeriod{
			{ReportTime: "0820", ReleaseTime: "1620", Legs: []Leg{leg("ORD", "OGG")}},
			{ReportTime: "0700", ReleaseTime: "1500", Legs: []Leg{leg("OGG", "ORD")}},
		},
	}

	p.Finish()

	if p.EffectiveDateISO != "2026-01-02" {
		t.Errorf("EffectiveDateISO = %q, want 2026-01-02", p.EffectiveDateISO)
	}
	if p.DaysCount != 2 {
		t.Errorf("DaysCount = %d, want 2", p.DaysCount)
	}
	if p.CreditMinutes != 750 {
		t.Errorf("CreditMinutes = %d, want 750", p.CreditMinutes)
	}
	if p.FlightTimeMinutes != 705 {
		t.Errorf("FlightTimeMinutes = %d, want 705", p.FlightTimeMinutes)
	}

	// Station assignment ran as part of Finish.
	if got := p.DutyPeriods[0].LayoverStation; got == nil || *got != "OGG" {
		t.Errorf("first duty period layover = %v, want OGG", got)
	}
	if p.DutyPeriods[1].LayoverStation != nil {
		t.Error("last duty period layover should be nil")
	}

	// Duty-period derived fields cascaded.
	if got := p.DutyPeriods[0].ReportTimeFormatted; got != "08:20" {
		t.Errorf("ReportTimeFormatted = %q, want 08:20", got)
	}
}

func TestDocumentSerializesNullLayover(t *testing.T) {
	// The last duty period's layover must appear as JSON null, not be
	// omitted - downstream consumers key on the field's presence.
	p := Pairing{Days: "1", DutyPeriods: []DutyPeriod{dutyPeriod(leg("ORD", "DEN"))}}
	p.Finish()

	out, err := json.Marshal(p.DutyPeriods[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"layover_station":null`) {
		t.Errorf("serialized duty period missing null layover_station: %s", out)
	}
}

func TestDocumentTotalPairings(t *testing.T) {
	doc := Document{
		Data: []BidPeriod{
			{Pairings: make([]Pairing, 3)},
			{Pairings: make([]Pairing, 2)},
		},
	}
	if got := doc.TotalPairings(); got != 5 {
		t.Errorf("TotalPairings = %d, want 5", got)
	}
}

func TestBidPeriodFinish(t *testing.T) {
	b := BidPeriod{
		EffectiveDate: "12/30/25",
		ThroughDate:   "01/29/26",
		FTM:           "13,857:51",
		TTL:           "14,848:56",
	}

	b.Finish()

	if b.EffectiveDateISO != "2025-12-30" {
		t.Errorf("EffectiveDateISO = %q, want 2025-12-30", b.EffectiveDateISO)
	}
	if b.FTMMinutes != 13857*60+51 {
		t.Errorf("FTMMinutes = %d, want %d", b.FTMMinutes, 13857*60+51)
	}
	if b.TTLMinutes != 14848*60+56 {
		t.Errorf("TTLMinutes = %d, want %d", b.TTLMinutes, 14848*60+56)
	}
}
