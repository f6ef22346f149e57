// Package timecode converts the textual time encodings found in pairing
// documents into canonical minute values and back.
//
// Four encodings appear in the source material:
//
//	HHMM      clock time, e.g. "0820"
//	H:MM      duration, e.g. "2:15" or "14:30"
//	H.MM      decimal duration, e.g. "9.24" (9 hours 24 minutes, not a decimal)
//	H,HHH:MM  comma-grouped duration, e.g. "13,857:51"
//
// plus MM/DD/YY dates which normalize to ISO-8601.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockToMinutes converts a 4-digit HHMM clock string to minutes since
// midnight. Returns an error for anything that is not exactly four digits
// or has minutes outside 00-59.
func ClockToMinutes(hhmm string) (int, error) {
	if len(hhmm) != 4 {
		return 0, fmt.Errorf("clock time %q: want 4 digits", hhmm)
	}
	h, err := strconv.Atoi(hhmm[:2])
	if err != nil {
		return 0, fmt.Errorf("clock time %q: %w", hhmm, err)
	}
	m, err := strconv.Atoi(hhmm[2:])
	if err != nil {
		return 0, fmt.Errorf("clock time %q: %w", hhmm, err)
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("clock time %q: out of range", hhmm)
	}
	return h*60 + m, nil
}

// MinutesToClock converts minutes since midnight back to a 4-digit HHMM
// string. Inverse of ClockToMinutes for valid inputs.
func MinutesToClock(minutes int) string {
	return fmt.Sprintf("%02d%02d", minutes/60, minutes%60)
}

// FormatClock renders "0820" as "08:20". Returns "" if the input is not a
// 4-digit string.
func FormatClock(hhmm string) string {
	if len(hhmm) != 4 {
		return ""
	}
	if _, err := strconv.Atoi(hhmm); err != nil {
		return ""
	}
	return hhmm[:2] + ":" + hhmm[2:]
}

// DurationToMinutes converts an H:MM or HH:MM duration to total minutes.
// "0", "" and ".00" all mean zero. Hours are unbounded (accumulated duty
// time can exceed 24).
func DurationToMinutes(s string) int {
	if s == "" || s == "0" || s == ".00" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return h*60 + m
}

// NormalizeDuration rewrites a decimal duration ("9.24") into colon form
// ("9:24"). Already-colon durations pass through; ".00" and "" become "0".
func NormalizeDuration(s string) string {
	if s == "" || s == ".00" {
		return "0"
	}
	if strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ".", ":")
	}
	return s
}

// DecimalDurationToMinutes converts an H.MM decimal duration to total
// minutes. The digits after the point are minutes, not a fraction:
// "9.24" is 9h24m = 564. Unparseable input yields 0.
func DecimalDurationToMinutes(s string) int {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return 0
	}
	h := 0
	if parts[0] != "" {
		var err error
		h, err = strconv.Atoi(parts[0])
		if err != nil {
			return 0
		}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return h*60 + m
}

// AnyDurationToMinutes converts a duration in either colon ("26:31") or
// decimal ("26.31") form to total minutes.
func AnyDurationToMinutes(s string) int {
	if strings.Contains(s, ":") {
		return DurationToMinutes(s)
	}
	return DecimalDurationToMinutes(s)
}

// CommaDurationToMinutes converts a comma-grouped H,HHH:MM duration
// ("13,857:51") to total minutes. Unparseable input yields 0.
func CommaDurationToMinutes(s string) int {
	if s == "" {
		return 0
	}
	return DurationToMinutes(strings.ReplaceAll(s, ",", ""))
}

// DateToISO converts an MM/DD/YY date to YYYY-MM-DD. Returns "" if the
// input does not parse.
func DateToISO(date string) string {
	if date == "" {
		return ""
	}
	t, err := time.Parse("01/02/06", date)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
