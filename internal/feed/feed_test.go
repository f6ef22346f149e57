package feed

import (
	"strings"
	"testing"

	"pairing_parser/internal/builder"
)

const sampleRoster = `EFF 12/30/25 THRU 01/29/26 787 CHICAGO JAN 2026 12/30/25

EFF 01/02/26 THRU 01/31/26 ID O8001 - BASIC   2 3
               RPT: 0820
 78J  202 ORD OGG 0920 1444  26.31 B S   9.24  9.24 10.39  .00
RLS: 1620
DAYS-  1  CRD-  9.30  FTM-  9.24  TAFB-  12.00  INT-  .00 NTE- .00  M$- .00  T/C- 9.30

ORD 787  FTM-13,578:02   TTL-14,387:35
`

func TestParseWholeRoster(t *testing.T) {
	doc, stats, err := Parse(sampleRoster, builder.Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Data) != 1 {
		t.Fatalf("bid periods = %d, want 1", len(doc.Data))
	}
	if doc.Data[0].Fleet != "787" {
		t.Errorf("fleet = %q", doc.Data[0].Fleet)
	}
	if stats.PairingsParsed != 1 {
		t.Errorf("pairings_parsed = %d", stats.PairingsParsed)
	}
	if doc.Metadata.LineCount != stats.TotalLines {
		t.Errorf("line_count = %d, total_lines = %d", doc.Metadata.LineCount, stats.TotalLines)
	}
}

func TestParseHandlesCRLF(t *testing.T) {
	crlf := strings.ReplaceAll(sampleRoster, "\n", "\r\n")
	doc, _, err := Parse(crlf, builder.Options{SkipOnError: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Data) != 1 || len(doc.Data[0].Pairings) != 1 {
		t.Fatalf("document shape wrong after CRLF input: %d bid periods", len(doc.Data))
	}
	if doc.Data[0].Pairings[0].ID != "O8001" {
		t.Errorf("pairing id = %q", doc.Data[0].Pairings[0].ID)
	}
}

func TestParseBadBuilderOptions(t *testing.T) {
	if _, _, err := Parse("", builder.Options{ReportTimePattern: "("}); err == nil {
		t.Error("Parse accepted an invalid marker pattern")
	}
}
