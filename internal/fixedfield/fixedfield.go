// Package fixedfield extracts substrings from positionally-encoded lines.
//
// The bid-period header is the only line kind with a genuinely fixed-width
// layout. Two physical layouts exist: the full layout (marked by the "1DSL"
// page-repeat token) and the compact layout used by the condensed roster
// export. Each is described by a column table; everything else in the
// document is whitespace-tokenized.
package fixedfield

import "strings"

// Extract returns line[start:end] with surrounding whitespace trimmed.
// A line shorter than end yields "" rather than an error - truncated
// trailing fields are routine in the source documents.
func Extract(line string, start, end int) string {
	if len(line) < end || start < 0 || start >= end {
		return ""
	}
	return strings.TrimSpace(line[start:end])
}

// Span is a half-open column range within a fixed-width line.
type Span struct {
	Start int
	End   int
}

// HeaderLayout maps bid-period header fields to their column spans.
type HeaderLayout struct {
	BidMonthYear  Span
	Fleet         Span
	Base          Span
	EffectiveDate Span
	ThroughDate   Span
}

// FullHeader is the layout of the original paginated document, whose header
// carries the "1DSL" page-repeat marker:
//
//	1DSL EFF 12/30/25 THRU 01/29/26 ...787... CHICAGO ... JAN 2026
var FullHeader = HeaderLayout{
	BidMonthYear:  Span{68, 78},
	Fleet:         Span{35, 38},
	Base:          Span{42, 55},
	EffectiveDate: Span{9, 17},
	ThroughDate:   Span{23, 31},
}

// CompactHeader is the layout of the condensed export:
//
//	EFF 12/30/25 THRU 01/29/26 787 CHICAGO JAN 2026 12/30/25
var CompactHeader = HeaderLayout{
	EffectiveDate: Span{4, 12},
	ThroughDate:   Span{18, 26},
	Fleet:         Span{27, 30},
	Base:          Span{31, 38},
	BidMonthYear:  Span{39, 47},
}

// HeaderFields holds the extracted values of a bid-period header line.
type HeaderFields struct {
	BidMonthYear  string
	Fleet         string
	Base          string
	EffectiveDate string
	ThroughDate   string
}

// ExtractHeader applies the layout's column table to a header line.
func ExtractHeader(line string, layout HeaderLayout) HeaderFields {
	return HeaderFields{
		BidMonthYear:  Extract(line, layout.BidMonthYear.Start, layout.BidMonthYear.End),
		Fleet:         Extract(line, layout.Fleet.Start, layout.Fleet.End),
		Base:          Extract(line, layout.Base.Start, layout.Base.End),
		EffectiveDate: Extract(line, layout.EffectiveDate.Start, layout.EffectiveDate.End),
		ThroughDate:   Extract(line, layout.ThroughDate.Start, layout.ThroughDate.End),
	}
}
