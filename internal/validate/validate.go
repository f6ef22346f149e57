// Package validate walks a finished roster document and reports structural
// problems: missing required fields, empty duty periods, and mismatches
// between document-stated totals and reconstructed sums. Validation never
// mutates the tree.
package validate

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"pairing_parser/internal/roster"
)

// Severity classifies an issue. Errors are structural defects; warnings
// are cross-check discrepancies worth a look but not necessarily wrong.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue is one validation finding, located by entity reference.
type Issue struct {
	Severity Severity `json:"severity"`
	Ref      string   `json:"ref"` // e.g. "bid_period[JAN 2026]/pairing[O8001]/duty_period[2]"
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Ref, i.Message)
}

// Report collects the findings of a lenient validation pass.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Valid reports whether the pass found no error-severity issues.
func (r *Report) Valid() bool {
	for _, i := range r.Issues {
		if i.Severity == Error {
			return false
		}
	}
	return true
}

// Errors counts error-severity issues.
func (r *Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == Error {
			n++
		}
	}
	return n
}

// totalsToleranceMinutes allows the stated bid-period FTM and the sum of
// pairing flight times to drift slightly; the document rounds each
// pairing independently.
const totalsToleranceMinutes = 120

// Validator checks a document tree. In strict mode the first
// error-severity finding aborts validation with an error; in lenient mode
// everything is collected into the report and logged.
type Validator struct {
	Strict bool
}

// New returns a validator in the given mode.
func New(strict bool) *Validator {
	return &Validator{Strict: strict}
}

// ValidateDocument checks every bid period in the document.
func (v *Validator) ValidateDocument(doc *roster.Document) (*Report, error) {
	report := &Report{}
	for i := range doc.Data {
		if err := v.validateBidPeriod(&doc.Data[i], report); err != nil {
			return report, err
		}
	}
	if !v.Strict {
		for _, issue := range report.Issues {
			if issue.Severity == Error {
				log.Warn().Str("ref", issue.Ref).Msg(issue.Message)
			} else {
				log.Debug().Str("ref", issue.Ref).Msg(issue.Message)
			}
		}
	}
	return report, nil
}

// ValidateBidPeriod checks a single bid period and its pairings.
func (v *Validator) ValidateBidPeriod(bp *roster.BidPeriod) (*Report, error) {
	report := &Report{}
	err := v.validateBidPeriod(bp, report)
	return report, err
}

func (v *Validator) validateBidPeriod(bp *roster.BidPeriod, report *Report) error {
	ref := fmt.Sprintf("bid_period[%s]", bp.BidMonthYear)

	if err := v.add(report, Error, ref, "missing bid month/year", bp.BidMonthYear == ""); err != nil {
		return err
	}
	if err := v.add(report, Error, ref, "missing fleet", bp.Fleet == ""); err != nil {
		return err
	}
	if err := v.add(report, Error, ref, "missing base", bp.Base == ""); err != nil {
		return err
	}

	for i := range bp.Pairings {
		if err := v.validatePairing(&bp.Pairings[i], ref, report); err != nil {
			return err
		}
	}

	// Cross-check: stated FTM total vs the sum of pairing flight times.
	if bp.FTMMinutes > 0 {
		sum := 0
		for i := range bp.Pairings {
			sum += bp.Pairings[i].FlightTimeMinutes
		}
		diff := bp.FTMMinutes - sum
		if diff < 0 {
			diff = -diff
		}
		if diff > totalsToleranceMinutes {
			msg := fmt.Sprintf("stated FTM %d min disagrees with reconstructed sum %d min", bp.FTMMinutes, sum)
			report.Issues = append(report.Issues, Issue{Severity: Warning, Ref: ref, Message: msg})
		}
	}

	return nil
}

// ValidatePairing checks a single pairing and its duty periods.
func (v *Validator) ValidatePairing(p *roster.Pairing) (*Report, error) {
	report := &Report{}
	err := v.validatePairing(p, "", report)
	return report, err
}

func (v *Validator) validatePairing(p *roster.Pairing, parent string, report *Report) error {
	ref := fmt.Sprintf("pairing[%s]", p.ID)
	if parent != "" {
		ref = parent + "/" + ref
	}

	if err := v.add(report, Error, ref, "missing pairing ID", p.ID == ""); err != nil {
		return err
	}
	if err := v.add(report, Error, ref, "pairing has no duty periods", len(p.DutyPeriods) == 0); err != nil {
		return err
	}
	if err := v.add(report, Error, ref, "missing flight time", p.FlightTime == ""); err != nil {
		return err
	}

	for i := range p.DutyPeriods {
		dp := &p.DutyPeriods[i]
		dpRef := fmt.Sprintf("%s/duty_period[%d]", ref, i)
		if err := v.add(report, Error, dpRef, "missing report time", dp.ReportTime == ""); err != nil {
			return err
		}
		if err := v.add(report, Error, dpRef, "missing release time", dp.ReleaseTime == ""); err != nil {
			return err
		}
		if err := v.add(report, Error, dpRef, "duty period has no legs", len(dp.Legs) == 0); err != nil {
			return err
		}
	}

	return nil
}

// add records an issue when failed is true. In strict mode an
// error-severity issue halts validation immediately.
func (v *Validator) add(report *Report, sev Severity, ref, msg string, failed bool) error {
	if !failed {
		return nil
	}
	issue := Issue{Severity: sev, Ref: ref, Message: msg}
	report.Issues = append(report.Issues, issue)
	if v.Strict && sev == Error {
		return fmt.Errorf("validation failed: %s", issue)
	}
	return nil
}
