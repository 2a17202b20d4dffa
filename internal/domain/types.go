// Package domain contains core business entities and types for spirometry
// interpretation following the GLI-2012 reference equations and the ATS/ERS
// interpretive strategy.
//
// Reference: Quanjer et al. (2012) Multi-ethnic reference values for spirometry
// for the 3-95-yr age range. Eur Respir J. 40(6):1324-43. doi: 10.1183/09031936.00080312
package domain

import "errors"

// Pattern represents the ventilatory pattern assigned by spirometry
// interpretation. These patterns follow the ATS/ERS interpretive strategy
// and represent the clinical category of a patient's lung function.
type Pattern string

const (
	PatternNormal      Pattern = "Normal"
	PatternObstructive Pattern = "Obstructive"
	PatternRestrictive Pattern = "Restrictive"
	PatternMixed       Pattern = "Mixed"
)

// Severity represents the graded impairment of an abnormal ventilatory
// pattern, based on FEV1 percent predicted with pattern-specific cutoffs.
type Severity string

const (
	// SeverityNone marks a normal pattern, which never receives a grade.
	SeverityNone             Severity = ""
	SeverityMild             Severity = "Mild"
	SeverityModerate         Severity = "Moderate"
	SeverityModeratelySevere Severity = "Moderately Severe"
	SeveritySevere           Severity = "Severe"
)

// Sex represents the biological sex used to select reference equations.
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// Parameter identifies a spirometry parameter with GLI-2012 reference
// equations. The FEV1/FVC ratio is derived from the two and carries its own
// identifier for Z-score reporting.
type Parameter string

const (
	FEV1      Parameter = "FEV1"
	FVC       Parameter = "FVC"
	FEV1Ratio Parameter = "FEV1_FVC"
)

// Phase distinguishes pre- and post-bronchodilator measurement sets.
type Phase string

const (
	PreBronchodilator  Phase = "pre_bronchodilator"
	PostBronchodilator Phase = "post_bronchodilator"
)

// Ethnicity identifies the reference population. Only one population is
// currently modeled; the table lookup rejects anything else.
type Ethnicity string

const EthnicityCaucasian Ethnicity = "caucasian"

// LLN is the Lower Limit of Normal expressed as a Z-score, the 5th
// percentile of a standard normal distribution. Classification uses a
// strict less-than comparison: a score exactly at the LLN is within
// normal limits.
const LLN = -1.645

// Validation errors for clinical data integrity
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPattern   = errors.New("invalid ventilatory pattern")
	ErrInvalidSeverity  = errors.New("invalid severity grade")
	ErrInvalidSex       = errors.New("invalid sex value")
	ErrInvalidParameter = errors.New("invalid spirometry parameter")
	ErrInvalidEthnicity = errors.New("unsupported reference population")
)

// IsValid validates that the Pattern is one of the four recognized
// ventilatory patterns. This is critical for medical software to ensure
// only valid categories reach clinical reporting.
func (p Pattern) IsValid() bool {
	switch p {
	case PatternNormal, PatternObstructive, PatternRestrictive, PatternMixed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the pattern.
// Required for proper logging and audit trails in medical software.
func (p Pattern) String() string {
	return string(p)
}

// IsAbnormal reports whether the pattern requires a severity grade.
func (p Pattern) IsAbnormal() bool {
	return p.IsValid() && p != PatternNormal
}

// LogFields returns structured logging fields for audit trails.
func (p Pattern) LogFields() map[string]any {
	return map[string]any{
		"pattern":     string(p),
		"is_valid":    p.IsValid(),
		"is_abnormal": p.IsAbnormal(),
	}
}

// IsValid validates the severity grade. SeverityNone is valid: it is the
// absence of a grade for a normal pattern, not an error state.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityMild, SeverityModerate, SeverityModeratelySevere, SeveritySevere:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity grade.
func (s Severity) String() string {
	return string(s)
}

// IsValid validates the sex value for reference equation lookup.
func (s Sex) IsValid() bool {
	switch s {
	case Male, Female:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sex value.
func (s Sex) String() string {
	return string(s)
}

// IsValid validates the parameter identifier.
func (p Parameter) IsValid() bool {
	switch p {
	case FEV1, FVC, FEV1Ratio:
		return true
	default:
		return false
	}
}

// HasReferenceEquation reports whether the parameter has its own GLI-2012
// coefficient set. The FEV1/FVC ratio is derived from the other two.
func (p Parameter) HasReferenceEquation() bool {
	return p == FEV1 || p == FVC
}

// String returns the string representation of the parameter.
func (p Parameter) String() string {
	return string(p)
}

// IsValid validates the ethnicity against the supported reference population.
func (e Ethnicity) IsValid() bool {
	return e == EthnicityCaucasian
}
