package service

import (
	"fmt"

	"github.com/pft-interpreter-server/internal/domain"
)

// Plausibility bounds for raw measurements. Values outside these are
// almost always transcription errors rather than physiology.
const (
	minPlausibleHeightCM = 100.0
	maxPlausibleHeightCM = 220.0
	minPlausibleLiters   = 0.3
	maxPlausibleFEV1     = 8.0
	maxPlausibleFVC      = 10.0

	// Measured FEV1 may exceed FVC by at most this much before the
	// record is rejected; spirometer rounding produces tiny overshoots.
	fev1FVCToleranceL = 0.01
)

// ValidateRecord runs the plausibility pre-check that gates engine input.
// It collects every problem rather than stopping at the first, so a form
// or batch caller can report them all at once. An empty slice means the
// record may be passed to the interpreter.
func ValidateRecord(record *domain.PatientRecord) []string {
	var errs []string

	if record == nil {
		return []string{"record is empty"}
	}

	demo := record.Demographics
	if demo.Age < domain.AgeMin || demo.Age > domain.AgeMax {
		errs = append(errs, fmt.Sprintf("age %.0f outside valid range (%.0f-%.0f)", demo.Age, domain.AgeMin, domain.AgeMax))
	}
	if demo.HeightCM < minPlausibleHeightCM || demo.HeightCM > maxPlausibleHeightCM {
		errs = append(errs, fmt.Sprintf("height %.0fcm outside valid range (%.0f-%.0f)", demo.HeightCM, minPlausibleHeightCM, maxPlausibleHeightCM))
	}
	if !demo.Sex.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid sex value: %q (should be M or F)", demo.Sex))
	}
	if demo.Ethnicity != "" && !demo.Ethnicity.IsValid() {
		errs = append(errs, fmt.Sprintf("unsupported reference population: %q", demo.Ethnicity))
	}

	pre := record.Results.Pre
	if pre == nil {
		errs = append(errs, "missing pre-bronchodilator measurements")
		return errs
	}

	errs = append(errs, validateMeasurement("pre-bronchodilator", pre)...)
	if post := record.Results.Post; post != nil {
		errs = append(errs, validateMeasurement("post-bronchodilator", post)...)
	}

	return errs
}

func validateMeasurement(phase string, m *domain.SpirometryMeasurement) []string {
	var errs []string

	fev1 := m.FEV1.Liters
	fvc := m.FVC.Liters

	if fev1 <= 0 {
		errs = append(errs, fmt.Sprintf("%s: missing FEV1 measurement", phase))
	}
	if fvc <= 0 {
		errs = append(errs, fmt.Sprintf("%s: missing FVC measurement", phase))
	}
	if fev1 <= 0 || fvc <= 0 {
		return errs
	}

	if fev1 > fvc+fev1FVCToleranceL {
		errs = append(errs, fmt.Sprintf("%s: FEV1 (%.2fL) cannot be greater than FVC (%.2fL)", phase, fev1, fvc))
	}
	if fev1 < minPlausibleLiters || fvc < minPlausibleLiters {
		errs = append(errs, fmt.Sprintf("%s: extremely low lung function values - please verify", phase))
	}
	if fev1 > maxPlausibleFEV1 || fvc > maxPlausibleFVC {
		errs = append(errs, fmt.Sprintf("%s: extremely high lung function values - please verify", phase))
	}

	return errs
}
