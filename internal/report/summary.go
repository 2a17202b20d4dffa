package report

import (
	"fmt"
	"strings"

	"github.com/pft-interpreter-server/internal/domain"
)

// Summary renders a plain-text summary of the report, suitable for
// terminal output or inclusion in referral notes.
func (r *Report) Summary() string {
	var b strings.Builder

	b.WriteString("PULMONARY FUNCTION TEST REPORT\n")
	b.WriteString("Automated Preliminary Interpretation\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	fmt.Fprintf(&b, "Report ID:  %s\n", r.Metadata.ReportID)
	fmt.Fprintf(&b, "Generated:  %s\n\n", r.Metadata.GeneratedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("PATIENT\n")
	fmt.Fprintf(&b, "  Age: %s   Sex: %s   Height: %s\n", r.Demographics.Age, r.Demographics.Sex, r.Demographics.Height)
	if r.Demographics.BMI != "" {
		fmt.Fprintf(&b, "  Weight: %s   BMI: %s (%s)\n", r.Demographics.Weight, r.Demographics.BMI, r.Demographics.BMICategory)
	}
	b.WriteString("\n")

	b.WriteString("PRE-BRONCHODILATOR\n")
	writePhase(&b, &r.PreBD)
	if r.PostBD != nil {
		b.WriteString("POST-BRONCHODILATOR\n")
		writePhase(&b, r.PostBD)
	}

	b.WriteString("INTERPRETATION\n")
	fmt.Fprintf(&b, "  Pattern:  %s\n", r.Interpretation.Pattern)
	if r.Interpretation.Severity != "" {
		fmt.Fprintf(&b, "  Severity: %s\n", r.Interpretation.Severity)
	}
	fmt.Fprintf(&b, "  Bronchodilator response: %s\n", r.Interpretation.BronchodilatorResponse)
	fmt.Fprintf(&b, "  Confidence: %d/100\n\n", r.Interpretation.ConfidenceScore)

	if len(r.Interpretation.FieldErrors) > 0 {
		b.WriteString("INCOMPLETE FIELDS\n")
		for _, fe := range r.Interpretation.FieldErrors {
			fmt.Fprintf(&b, "  - %s: %s\n", fe.Field, fe.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("CLINICAL IMPRESSION\n")
	fmt.Fprintf(&b, "  %s\n\n", r.Impression)

	b.WriteString("RECOMMENDATIONS\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Reference: %s; %s\n", r.Metadata.ReferenceEquations, r.Metadata.Guidelines)
	fmt.Fprintf(&b, "%s\n", r.Metadata.Disclaimer)

	return b.String()
}

func writePhase(b *strings.Builder, phase *PhaseSection) {
	writeRow(b, "FVC", phase.FVC)
	writeRow(b, "FEV1", phase.FEV1)
	if phase.Ratio != "" {
		fmt.Fprintf(b, "  FEV1/FVC: %s\n", phase.Ratio)
	}
	b.WriteString("\n")
}

func writeRow(b *strings.Builder, label string, row ValueRow) {
	fmt.Fprintf(b, "  %-5s %s", label, row.Measured)
	if row.PercentPredicted != "" {
		fmt.Fprintf(b, "  (%s predicted", row.PercentPredicted)
		if row.ZScore != "" {
			fmt.Fprintf(b, ", Z=%s", row.ZScore)
		}
		b.WriteString(")")
	}
	b.WriteString("\n")
}

// PatternCounts accumulates pattern and severity distribution across a
// batch run.
type PatternCounts struct {
	Patterns   map[domain.Pattern]int  `json:"patterns"`
	Severities map[domain.Severity]int `json:"severities"`
}

// NewPatternCounts creates empty counters.
func NewPatternCounts() *PatternCounts {
	return &PatternCounts{
		Patterns:   make(map[domain.Pattern]int),
		Severities: make(map[domain.Severity]int),
	}
}

// Add records one interpretation outcome.
func (c *PatternCounts) Add(result *domain.InterpretationResult) {
	c.Patterns[result.Pattern]++
	if result.Severity != domain.SeverityNone {
		c.Severities[result.Severity]++
	}
}
