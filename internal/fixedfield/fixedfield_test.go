package fixedfield

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		line       string
		start, end int
		want       string
	}{
		{"EFF 12/30/25 THRU 01/29/26", 4, 12, "12/30/25"},
		{"EFF 12/30/25 THRU 01/29/26", 18, 26, "01/29/26"},
		{"short", 4, 12, ""},
		{"  padded  ", 0, 10, "padded"},
		{"abc", 2, 2, ""},
		{"abc", -1, 2, ""},
	}

	for _, tt := range tests {
		if got := Extract(tt.line, tt.start, tt.end); got != tt.want {
			t.Errorf("Extract(%q, %d, %d) = %q, want %q", tt.line, tt.start, tt.end, got, tt.want)
		}
	}
}

func TestExtractHeaderCompact(t *testing.T) {
	line := "EFF 12/30/25 THRU 01/29/26 787 CHICAGO JAN 2026 12/30/25"

	got := ExtractHeader(line, CompactHeader)

	if got.EffectiveDate != "12/30/25" {
		t.Errorf("EffectiveDate = %q, want %q", got.EffectiveDate, "12/30/25")
	}
	if got.ThroughDate != "01/29/26" {
		t.Errorf("ThroughDate = %q, want %q", got.ThroughDate, "01/29/26")
	}
	if got.Fleet != "787" {
		t.Errorf("Fleet = %q, want %q", got.Fleet, "787")
	}
	if got.Base != "CHICAGO" {
		t.Errorf("Base = %q, want %q", got.Base, "CHICAGO")
	}
	if got.BidMonthYear != "JAN 2026" {
		t.Errorf("BidMonthYear = %q, want %q", got.BidMonthYear, "JAN 2026")
	}
}

func TestExtractHeaderShortLine(t *testing.T) {
	// A header truncated before the month/year column yields empty fields,
	// not a panic.
	got := ExtractHeader("EFF 12/30/25 THRU 01/29/26", CompactHeader)
	if got.BidMonthYear != "" {
		t.Errorf("BidMonthYear = %q, want empty", got.BidMonthYear)
	}
	if got.EffectiveDate != "12/30/25" {
		t.Errorf("EffectiveDate = %q, want %q", got.EffectiveDate, "12/30/25")
	}
}
